// Package vision implements the local image analysis used by the free-text
// provider path: dominant-color extraction by uniform-grid clustering and
// tag extraction from caption text.
package vision

import (
	"fmt"
	"image"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/photomanager/api/internal/model"
)

const (
	// paletteSide is the edge of the square the image is cover-resized to
	// before clustering. Small enough to be cheap, large enough that a 1%
	// cluster still holds a couple hundred pixels.
	paletteSide = 150

	// bucketWidth is the quantization step applied to each RGB channel.
	// Every channel value is rounded to the nearest multiple of 40, which
	// collapses near-identical colors into a single cluster key.
	bucketWidth = 40

	// maxColors bounds the returned palette.
	maxColors = 5
)

type bucketKey struct {
	r, g, b int
}

// DominantColors resizes img to a 150x150 cover crop, clusters its pixels on
// a uniform RGB grid and returns the up-to-5 most frequent clusters with
// integer percentages and localized names, most frequent first. Clusters
// whose percentage rounds to zero are dropped. The result is deterministic:
// equal counts are broken by bucket value.
func DominantColors(img image.Image, lang string) []model.ColorInfo {
	small := imaging.Fill(img, paletteSide, paletteSide, imaging.Center, imaging.Lanczos)

	counts := make(map[bucketKey]int)
	bounds := small.Bounds()
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := small.At(x, y).RGBA()
			key := bucketKey{
				r: quantize(int(r >> 8)),
				g: quantize(int(g >> 8)),
				b: quantize(int(b >> 8)),
			}
			counts[key]++
			total++
		}
	}
	if total == 0 {
		return nil
	}

	keys := make([]bucketKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		if a.r != b.r {
			return a.r < b.r
		}
		if a.g != b.g {
			return a.g < b.g
		}
		return a.b < b.b
	})
	if len(keys) > maxColors {
		keys = keys[:maxColors]
	}

	colors := make([]model.ColorInfo, 0, len(keys))
	for _, k := range keys {
		pct := (counts[k]*100 + total/2) / total
		if pct == 0 {
			continue
		}
		colors = append(colors, model.ColorInfo{
			Hex:        fmt.Sprintf("#%02x%02x%02x", k.r, k.g, k.b),
			Name:       ColorName(k.r, k.g, k.b, lang),
			Percentage: pct,
		})
	}
	return colors
}

// quantize rounds v to the nearest multiple of bucketWidth.
func quantize(v int) int {
	return (v + bucketWidth/2) / bucketWidth * bucketWidth
}
