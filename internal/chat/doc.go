// Package chat implements a line-oriented broadcast chat server.
//
// Each connection sends a username as its first line and then chats; every
// line is relayed to all other connected peers through per-peer bounded
// mailboxes held in a sharded Registry. TCP clients and, optionally,
// websocket clients share the same chat.
package chat
