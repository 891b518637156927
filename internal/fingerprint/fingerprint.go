// Package fingerprint reduces full-resolution frames to small grayscale
// digests and scores the difference between two digests, giving the capture
// gate a cheap change signal without touching the network.
package fingerprint

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder

	"github.com/nfnt/resize"

	apperrors "github.com/glancelog/glance/internal/errors"
)

// Digest decodes an encoded frame and reduces it to a
// DigestWidth x DigestHeight grayscale thumbnail, one byte per position.
// Nearest-neighbor sampling is non-interpolating, so identical input bytes
// always produce identical digests.
func Digest(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, &apperrors.DecodeError{Cause: err}
	}

	small := resize.Resize(DigestWidth, DigestHeight, img, resize.NearestNeighbor)

	digest := make([]byte, 0, DigestWidth*DigestHeight)
	bounds := small.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.GrayModel.Convert(small.At(x, y)).(color.Gray)
			digest = append(digest, gray.Y)
		}
	}
	return digest, nil
}

// ChangeRate returns the percentage of positions (0-100) whose intensity
// difference strictly exceeds NoiseTolerance. Digests of different lengths
// are not comparable and score as total change rather than an error.
func ChangeRate(a, b []byte) float64 {
	if len(a) != len(b) {
		return 100.0
	}
	if len(a) == 0 {
		return 0.0
	}

	changed := 0
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		if d > NoiseTolerance {
			changed++
		}
	}
	return float64(changed) / float64(len(a)) * 100.0
}
