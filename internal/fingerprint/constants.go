package fingerprint

// Digest dimensions and comparison tolerance
const (
	// DigestWidth and DigestHeight define the thumbnail every frame is
	// reduced to. 64x64 keeps a digest at 4096 bytes.
	DigestWidth  = 64
	DigestHeight = 64

	// NoiseTolerance is the per-position intensity difference (0-255 scale)
	// ignored as sampling noise. A difference must strictly exceed it to
	// count as changed.
	NoiseTolerance = 10
)
