package wire

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tiptoe-pir/tiptoe/pkg/corpus"
)

// CentroidsJSON is the wire shape of GET /centroids (embedding server
// only), spec.md §6: "k x d floats plus quantization parameters and
// m_rows_per_cluster".
type CentroidsJSON struct {
	K              int       `json:"k"`
	D              int       `json:"d"`
	RowsPerCluster int       `json:"m_rows_per_cluster"`
	QuantMin       float64   `json:"quant_min"`
	QuantMax       float64   `json:"quant_max"`
	QuantP         uint64    `json:"quant_p"`
	Data           []float64 `json:"data"` // row-major k*d
}

// EncodeCentroidsJSON converts a centroid matrix and quantization
// parameters into the wire JSON shape.
func EncodeCentroidsJSON(centroids *mat.Dense, quant corpus.QuantParams, rowsPerCluster int) CentroidsJSON {
	k, d := centroids.Dims()
	data := make([]float64, 0, k*d)
	for i := 0; i < k; i++ {
		data = append(data, mat.Row(nil, i, centroids)...)
	}
	return CentroidsJSON{
		K:              k,
		D:              d,
		RowsPerCluster: rowsPerCluster,
		QuantMin:       quant.Min,
		QuantMax:       quant.Max,
		QuantP:         quant.P,
		Data:           data,
	}
}

// DecodeCentroidsJSON inverts EncodeCentroidsJSON.
func DecodeCentroidsJSON(cj CentroidsJSON) (*mat.Dense, corpus.QuantParams, int) {
	centroids := mat.NewDense(cj.K, cj.D, cj.Data)
	quant := corpus.QuantParams{Min: cj.QuantMin, Max: cj.QuantMax, P: cj.QuantP}
	return centroids, quant, cj.RowsPerCluster
}
