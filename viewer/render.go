package viewer

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// renderFrame writes img as ANSI 24-bit half-block characters. Each terminal
// row holds two pixel rows: the top pixel is the foreground color and the
// bottom pixel the background color of a "▀".
func renderFrame(img *image.RGBA, w *strings.Builder) {
	b := img.Bounds()

	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.RGBAAt(x, y)

			var bot color.RGBA
			if y+1 < b.Max.Y {
				bot = img.RGBAAt(x, y+1)
			}

			fmt.Fprintf(w, "\033[38;2;%d;%d;%dm\033[48;2;%d;%d;%dm▀", top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}

		w.WriteString("\033[0m\n")
	}
}

// clock formats a duration in seconds as "0m 04s".
func clock(seconds float64) string {
	s := int(seconds)

	return fmt.Sprintf("%dm %02ds", s/60, s%60)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}

	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}
