package wire

import (
	"encoding/hex"
	"math/bits"

	"github.com/tiptoe-pir/tiptoe/pkg/csprng"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
)

// ParamsJSON is the wire shape of GET /params, spec.md §6:
// { n, log2_q, p, m_rows, m_cols, sigma, seedA_hex }.
type ParamsJSON struct {
	N        uint64  `json:"n"`
	Log2Q    int     `json:"log2_q"`
	P        uint64  `json:"p"`
	MRows    uint64  `json:"m_rows"`
	MCols    uint64  `json:"m_cols"`
	Sigma    float64 `json:"sigma"`
	SeedAHex string  `json:"seedA_hex"`
}

// EncodeParams converts a Params + SeedA into the JSON wire shape.
func EncodeParams(params lwe.Params, seedA [csprng.SeedLen]byte) ParamsJSON {
	return ParamsJSON{
		N:        params.N,
		Log2Q:    log2Floor(params.Q),
		P:        params.P,
		MRows:    params.Rows,
		MCols:    params.Cols,
		Sigma:    params.Sigma,
		SeedAHex: hex.EncodeToString(seedA[:]),
	}
}

// DecodeParams inverts EncodeParams, reconstructing Params (without
// SecretDist, which is not part of the public wire contract and defaults
// to SecretUniform on the client) and SeedA.
func DecodeParams(pj ParamsJSON) (lwe.Params, [csprng.SeedLen]byte, error) {
	var seedA [csprng.SeedLen]byte
	raw, err := hex.DecodeString(pj.SeedAHex)
	if err != nil {
		return lwe.Params{}, seedA, pirerr.Wrap(pirerr.KindTransport, err, "decoding seedA_hex")
	}
	if len(raw) != csprng.SeedLen {
		return lwe.Params{}, seedA, pirerr.New(pirerr.KindTransport, "seedA_hex has %d bytes, want %d", len(raw), csprng.SeedLen)
	}
	copy(seedA[:], raw)

	params := lwe.Params{
		N:          pj.N,
		Q:          uint64(1) << uint(pj.Log2Q),
		P:          pj.P,
		Sigma:      pj.Sigma,
		Rows:       pj.MRows,
		Cols:       pj.MCols,
		SecretDist: lwe.SecretUniform,
	}
	return params, seedA, nil
}

func log2Floor(v uint64) int {
	if v == 0 {
		return 0
	}
	return bits.Len64(v) - 1
}
