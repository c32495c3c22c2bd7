// Package video decodes frames from video files by driving the ffmpeg and
// ffprobe executables.
//
// Videos are located by a fixed naming convention: the video with ID "7"
// lives at "{dir}/7.avi" (see [Path]). A [Source] opens a [Handle] for one
// file; the handle decodes a single frame on demand with [Handle.Frame] or
// streams every frame with [Handle.Frames]:
//
//	src := video.NewSource()
//
//	h, err := src.Open(ctx, video.Path(dir, "7"))
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	img, err := h.Frame(ctx, 42)
//	if errors.Is(err, video.ErrFrameNotFound) {
//	    // Skip, the index is past the end of the stream.
//	}
//
// Frames are delivered as [frame.BGR] images in the decoder's native bgr24
// layout.
package video
