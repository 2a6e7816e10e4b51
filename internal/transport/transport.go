// Package transport implements the HTTP binding of spec.md §6's external
// interface: the five endpoints (/params, /hint, /centroids, /answer,
// /health) plus the client-side HTTP stubs that satisfy pkg/tiptoe's
// EmbeddingAnswerer/EncodingAnswerer interfaces. It is grounded in the
// teacher's pkg/client/internal/server split — the client only ever talks
// to the server through an interface — ported from gRPC to net/http since
// spec.md §6 specifies a plain HTTP surface rather than a protobuf one.
package transport

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"

	"github.com/tiptoe-pir/tiptoe/pkg/csprng"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
	"github.com/tiptoe-pir/tiptoe/pkg/simplepir"
	"github.com/tiptoe-pir/tiptoe/pkg/tiptoe"
	"github.com/tiptoe-pir/tiptoe/pkg/wire"
)

// StatusFor maps a pirerr.Kind to the HTTP status code spec.md §6 assigns
// it: 400 for malformed/adversarial client input (dimension, decode and
// invalid-config errors), 409 for a parameter mismatch, 503 for transport
// errors, and 500 for anything else, including errors that are not a
// *pirerr.Error.
func StatusFor(err error) int {
	var pe *pirerr.Error
	if e, ok := err.(*pirerr.Error); ok {
		pe = e
	} else {
		return http.StatusInternalServerError
	}
	switch pe.Kind {
	case pirerr.KindDimension, pirerr.KindDecodeFailure, pirerr.KindInvalidConfig:
		return http.StatusBadRequest
	case pirerr.KindParameterMismatch:
		return http.StatusConflict
	case pirerr.KindTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a plain-text body under the status StatusFor
// derives for it.
func WriteError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), StatusFor(err))
}

// embeddingQueryHeaderLen is the width of the 8-byte big-endian cluster index prefixed to
// an embedding query's wire body, ahead of the SimplePIR query vector
// itself.
const embeddingQueryHeaderLen = 8

// WriteEmbeddingQuery serializes an embedding-stage query (cluster index
// plus SimplePIR query vector) for POST /answer.
func WriteEmbeddingQuery(w io.Writer, q *tiptoe.EmbeddingQuery) error {
	var header [embeddingQueryHeaderLen]byte
	binary.BigEndian.PutUint64(header[:], q.Cluster)
	if _, err := w.Write(header[:]); err != nil {
		return pirerr.Wrap(pirerr.KindTransport, err, "writing embedding query header")
	}
	return wire.WriteMatrix(w, q.Query.Vec)
}

// ReadEmbeddingQuery inverts WriteEmbeddingQuery.
func ReadEmbeddingQuery(r io.Reader, params lwe.Params) (*tiptoe.EmbeddingQuery, error) {
	var header [embeddingQueryHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, pirerr.Wrap(pirerr.KindTransport, err, "reading embedding query header")
	}
	cluster := binary.BigEndian.Uint64(header[:])
	vec, err := wire.ReadMatrix[tiptoe.Elem](r, params.Q)
	if err != nil {
		return nil, err
	}
	return &tiptoe.EmbeddingQuery{Cluster: cluster, Query: &simplepir.Query{Vec: vec}}, nil
}

// EmbeddingClient drives an embedding-server's HTTP endpoints and
// satisfies pkg/tiptoe.EmbeddingAnswerer.
type EmbeddingClient struct {
	BaseURL string
	HTTP    *http.Client
	Params  lwe.Params
}

// FetchEmbeddingSetup retrieves /params and /hint from an embedding
// server, returning the pieces a Client needs to build its local state.
func FetchEmbeddingSetup(baseURL string, httpClient *http.Client) (lwe.Params, [csprng.SeedLen]byte, *simplepir.Hint, error) {
	params, seedA, err := fetchParams(baseURL, httpClient)
	if err != nil {
		return lwe.Params{}, seedA, nil, err
	}
	hint, err := fetchHint(baseURL, httpClient, params)
	if err != nil {
		return params, seedA, nil, err
	}
	return params, seedA, hint, nil
}

// FetchCentroids retrieves GET /centroids from an embedding server.
func FetchCentroids(baseURL string, httpClient *http.Client) (wire.CentroidsJSON, error) {
	resp, err := httpClient.Get(baseURL + "/centroids")
	if err != nil {
		return wire.CentroidsJSON{}, pirerr.Wrap(pirerr.KindTransport, err, "GET /centroids")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return wire.CentroidsJSON{}, httpStatusErr(resp)
	}
	var cj wire.CentroidsJSON
	if err := json.NewDecoder(resp.Body).Decode(&cj); err != nil {
		return wire.CentroidsJSON{}, pirerr.Wrap(pirerr.KindTransport, err, "decoding /centroids body")
	}
	return cj, nil
}

// Answer implements pkg/tiptoe.EmbeddingAnswerer by POSTing the query to
// the embedding server's /answer endpoint.
func (c *EmbeddingClient) Answer(q *tiptoe.EmbeddingQuery) (*simplepir.Answer, error) {
	var body bytes.Buffer
	if err := WriteEmbeddingQuery(&body, q); err != nil {
		return nil, err
	}
	resp, err := httpClient(c.HTTP).Post(c.BaseURL+"/answer", "application/octet-stream", &body)
	if err != nil {
		return nil, pirerr.Wrap(pirerr.KindTransport, err, "POST /answer")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httpStatusErr(resp)
	}
	vec, err := wire.ReadMatrix[tiptoe.Elem](resp.Body, c.Params.Q)
	if err != nil {
		return nil, err
	}
	return &simplepir.Answer{Vec: vec}, nil
}

// EncodingClient drives an encoding-server's HTTP endpoints and satisfies
// pkg/tiptoe.EncodingAnswerer.
type EncodingClient struct {
	BaseURL string
	HTTP    *http.Client
	Params  lwe.Params
}

// FetchEncodingSetup retrieves /params and /hint from an encoding server.
func FetchEncodingSetup(baseURL string, httpClient *http.Client) (lwe.Params, [csprng.SeedLen]byte, *simplepir.Hint, error) {
	params, seedA, err := fetchParams(baseURL, httpClient)
	if err != nil {
		return lwe.Params{}, seedA, nil, err
	}
	hint, err := fetchHint(baseURL, httpClient, params)
	if err != nil {
		return params, seedA, nil, err
	}
	return params, seedA, hint, nil
}

// Answer implements pkg/tiptoe.EncodingAnswerer.
func (c *EncodingClient) Answer(q *simplepir.Query) (*simplepir.Answer, error) {
	var body bytes.Buffer
	if err := wire.WriteMatrix(&body, q.Vec); err != nil {
		return nil, err
	}
	resp, err := httpClient(c.HTTP).Post(c.BaseURL+"/answer", "application/octet-stream", &body)
	if err != nil {
		return nil, pirerr.Wrap(pirerr.KindTransport, err, "POST /answer")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httpStatusErr(resp)
	}
	vec, err := wire.ReadMatrix[tiptoe.Elem](resp.Body, c.Params.Q)
	if err != nil {
		return nil, err
	}
	return &simplepir.Answer{Vec: vec}, nil
}

func fetchParams(baseURL string, httpClient *http.Client) (lwe.Params, [csprng.SeedLen]byte, error) {
	resp, err := httpClient.Get(baseURL + "/params")
	if err != nil {
		return lwe.Params{}, [csprng.SeedLen]byte{}, pirerr.Wrap(pirerr.KindTransport, err, "GET /params")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return lwe.Params{}, [csprng.SeedLen]byte{}, httpStatusErr(resp)
	}
	var pj wire.ParamsJSON
	if err := json.NewDecoder(resp.Body).Decode(&pj); err != nil {
		return lwe.Params{}, [csprng.SeedLen]byte{}, pirerr.Wrap(pirerr.KindTransport, err, "decoding /params body")
	}
	return wire.DecodeParams(pj)
}

func fetchHint(baseURL string, httpClient *http.Client, params lwe.Params) (*simplepir.Hint, error) {
	resp, err := httpClient.Get(baseURL + "/hint")
	if err != nil {
		return nil, pirerr.Wrap(pirerr.KindTransport, err, "GET /hint")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httpStatusErr(resp)
	}
	h, err := wire.ReadMatrix[tiptoe.Elem](resp.Body, params.Q)
	if err != nil {
		return nil, err
	}
	return &simplepir.Hint{H: h}, nil
}

func httpStatusErr(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return pirerr.New(pirerr.KindTransport, "unexpected status %s: %s", resp.Status, bytes.TrimSpace(b))
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
