// Package app connects a host event loop to the quadframe renderer.
//
// The host forwards platform events to an [Engine]: Resize on framebuffer
// changes, HandleKey on keyboard input, and Update followed by Redraw when
// a redraw is due. Redraw applies the recovery policy for failed frames
// and returns a [Recovery] telling the host whether to keep running.
package app
