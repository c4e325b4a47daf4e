// Package firmware drives the robot board through its firmware over a
// byte stream (serial port or TCP bridge).
//
// The link between host and firmware is synchronized with sequence
// numbers: both sides send a sync request carrying their next sequence,
// the peer acknowledges and from then on every frame must carry the
// expected sequence, otherwise the receiver resyncs. No checksum is
// used, enable parity on the serial port if needed.
//
// Frame layout: SEQ CODE [LEN] DATA...
// CODE bit 7 marks an event, bits 4-6 hold the data length (7 means a
// separate LEN byte follows), bits 0-3 the code. Replies carry the
// request sequence as the first data byte and set bit 0 of the code on
// error.
package firmware
