// Package port picks the TCP port the Storybook dev server listens on.
//
// The generated "storybook" script and the run command prefer port 9001.
// When another process already holds it, Scanner.Resolve walks upward to
// the next free port, so a second Storybook (or anything else bound to
// 9001) does not make the launch fail.
//
// Availability is decided by binding the port:
//   - TCP ports with net.Listen
//   - UDP ports with net.ListenPacket
//
// The dev server only needs TCP; UDP checks are kept for callers checking
// other services.
package port
