package classifier

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// snapshot is the persisted form of a trained network. Matrices use the
// gonum binary encoding. Optimizer moments are not kept, so training
// resumed from a snapshot restarts Adam.
type snapshot struct {
	Config  Config            `json:"config"`
	Trained bool              `json:"trained"`
	Params  map[string][]byte `json:"params"`
}

func (n *Network) namedMatrices() map[string]*mat.Dense {
	return map[string]*mat.Dense{
		"lstm1.w":  n.l1.w,
		"lstm1.u":  n.l1.u,
		"lstm2.w":  n.l2.w,
		"lstm2.u":  n.l2.u,
		"output.w": n.out.w,
	}
}

func (n *Network) namedVectors() map[string]*mat.VecDense {
	return map[string]*mat.VecDense{
		"lstm1.b":  n.l1.b,
		"lstm2.b":  n.l2.b,
		"output.b": n.out.b,
	}
}

// MarshalBinary encodes the configuration and weights.
func (n *Network) MarshalBinary() ([]byte, error) {
	snap := snapshot{Config: n.cfg, Trained: n.trained, Params: make(map[string][]byte)}
	for name, m := range n.namedMatrices() {
		b, err := m.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		snap.Params[name] = b
	}
	for name, v := range n.namedVectors() {
		b, err := v.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		snap.Params[name] = b
	}
	return json.Marshal(snap)
}

// Load rebuilds a network from MarshalBinary output.
func Load(b []byte) (*Network, error) {
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode network: %w", err)
	}
	n, err := New(snap.Config)
	if err != nil {
		return nil, err
	}
	for name, dst := range n.namedMatrices() {
		raw, ok := snap.Params[name]
		if !ok {
			return nil, fmt.Errorf("decode network: missing %s", name)
		}
		var m mat.Dense
		if err := m.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		wr, wc := dst.Dims()
		if r, c := m.Dims(); r != wr || c != wc {
			return nil, fmt.Errorf("decode %s: dims (%d, %d), want (%d, %d)", name, r, c, wr, wc)
		}
		dst.Copy(&m)
	}
	for name, dst := range n.namedVectors() {
		raw, ok := snap.Params[name]
		if !ok {
			return nil, fmt.Errorf("decode network: missing %s", name)
		}
		var v mat.VecDense
		if err := v.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if v.Len() != dst.Len() {
			return nil, fmt.Errorf("decode %s: len %d, want %d", name, v.Len(), dst.Len())
		}
		dst.CopyVec(&v)
	}
	n.trained = snap.Trained
	return n, nil
}
