// Package wire is the TCP client side of the frame transport.
//
// Each direction carries fixed-size frames laid out as block.Frame:
// [record_count u64][records...]. No length prefix or type tag is sent, so
// both ends must agree on OutboundSize and InboundSize up front. An
// optional JSON-line hello can confirm that agreement before the first
// frame.
package wire
