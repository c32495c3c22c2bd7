// Package frame holds decoded video frames and writes them as PNG images.
//
// Decoders emit pixels in B, G, R order; [BGR] keeps that layout so raw
// decoder output can be wrapped without copying. [WritePNG] reorders the
// channels before encoding.
//
// The dataset resize policy lives in [Fit]: frames whose bounds differ from
// the target [Size] are scaled to exactly that size, without preserving the
// aspect ratio.
package frame
