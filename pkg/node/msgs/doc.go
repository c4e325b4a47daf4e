// Package msgs provides the node wire protocol and all message schemas.
//
// Every message is wrapped in a Typed envelope carrying the type ID and
// the command sequence. Commands are replied with the same sequence,
// events are never replied.
package msgs
