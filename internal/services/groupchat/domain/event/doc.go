// Package event defines the envelope shared by every group chat event and the
// type-tagged codec that moves events to and from flat field maps.
//
// The codec knows nothing about storage. Journals decide the at-rest byte
// format; the codec only guarantees that decoding an encoded event yields an
// equal event and that unknown or malformed inputs fail with distinguishable
// errors.
package event
