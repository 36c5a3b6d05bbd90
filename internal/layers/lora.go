package layers

import (
	"fmt"
	"math"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// LoRALayer is a low-rank adaptation of a dense projection, for
// parameter-efficient fine-tuning.
//
// Formula: y = W x + b + (alpha/rank) * B^T (A^T x)
//
// Where:
//   - W [out, in] and b [out] are the frozen base projection
//   - A [in, rank] is initialized from a Gaussian with std 1/sqrt(in)
//   - B [rank, out] is initialized to zeros, so a fresh adapter
//     reproduces the base layer exactly
//
// The base weights ride through propagation frozen on the disabled
// update; only A and B train. Alpha is typically 2 * rank.
type LoRALayer struct {
	*DefaultCellularLayer

	baseWeights *tensor.Tensor
	baseBias    *tensor.Tensor
	loraA       *tensor.Tensor
	loraB       *tensor.Tensor
	rank        int
	alpha       float64
	scale       float64
}

// LoRALinear wraps a pre-trained projection with a fresh adapter.
// baseWeights must be [out, in]; baseBias may be nil. The adapter
// matrices are filled at construction, so the layer computes the base
// output unchanged until training moves B away from zero.
func LoRALinear(baseWeights, baseBias *tensor.Tensor, rank int, alpha float64, cfg Config) (*LoRALayer, error) {
	shape := baseWeights.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("layers: LoRA base weights must be 2-D [out, in], got %v", shape)
	}
	out, in := shape[0], shape[1]
	if rank <= 0 {
		return nil, fmt.Errorf("layers: LoRA requires a positive rank, got %d", rank)
	}
	if baseBias != nil && baseBias.NumElements() != out {
		return nil, fmt.Errorf("layers: LoRA base bias %v does not match output size %d",
			baseBias.Shape(), out)
	}

	name := fmt.Sprintf("LoRALinear[%d->%d, r=%d]", in, out, rank)
	scale := alpha / float64(rank)

	loraA := tensor.New(tensor.Of(in, rank))
	loraB := tensor.New(tensor.Of(rank, out))
	rng := cfg.rng()
	std := 1 / math.Sqrt(float64(in))
	a := loraA.Data()
	for i := range a {
		a[i] = rng.NormFloat64() * std
	}

	wA := NewWeight(name+".loraA", loraA)
	wB := NewWeight(name+".loraB", loraB)
	wBase := NewWeight(name+".weight", baseWeights)
	wBase.Freeze()
	weights := []*Weight{wA, wB, wBase}
	var wBias *Weight
	if baseBias != nil {
		wBias = NewWeight(name+".bias", baseBias)
		wBias.Freeze()
		weights = append(weights, wBias)
	}

	inner, err := NewLayer(name, tensor.Of(in), weights, op.Nop(),
		func(x *expr.Variable) expr.Producer {
			base := expr.MatMul(wBase.Var(), x)
			if wBias != nil {
				base = expr.Add(base, wBias.Var())
			}
			xa := expr.MatMul(expr.Transpose(wA.Var()), x)
			adapter := expr.MatMul(expr.Transpose(wB.Var()), xa)
			return expr.Add(base, expr.Scale(adapter, scale))
		})
	if err != nil {
		return nil, err
	}
	if err := inner.Init(cfg); err != nil {
		return nil, err
	}

	return &LoRALayer{
		DefaultCellularLayer: inner,
		baseWeights:          baseWeights,
		baseBias:             baseBias,
		loraA:                loraA,
		loraB:                loraB,
		rank:                 rank,
		alpha:                alpha,
		scale:                scale,
	}, nil
}

// A returns the adapter matrix [in, rank].
func (l *LoRALayer) A() *tensor.Tensor { return l.loraA }

// B returns the adapter matrix [rank, out].
func (l *LoRALayer) B() *tensor.Tensor { return l.loraB }

// BaseWeights returns the frozen base weight matrix.
func (l *LoRALayer) BaseWeights() *tensor.Tensor { return l.baseWeights }

// BaseBias returns the frozen base bias, nil when the base has none.
func (l *LoRALayer) BaseBias() *tensor.Tensor { return l.baseBias }

// Rank returns the low-rank dimension.
func (l *LoRALayer) Rank() int { return l.rank }

// Alpha returns the scaling factor.
func (l *LoRALayer) Alpha() float64 { return l.alpha }

// MergedWeights folds the adapter into a copy of the base weights:
//
//	W_merged[i, j] = W[i, j] + (alpha/rank) * sum over r of A[j, r] * B[r, i]
//
// The layer itself is left untouched.
func (l *LoRALayer) MergedWeights() *tensor.Tensor {
	shape := l.baseWeights.Shape()
	out, in := shape[0], shape[1]

	merged := tensor.New(tensor.Of(out, in))
	for i := 0; i < out; i++ {
		for j := 0; j < in; j++ {
			var lora float64
			for r := 0; r < l.rank; r++ {
				lora += l.loraA.At(j, r) * l.loraB.At(r, i)
			}
			merged.Set(l.baseWeights.At(i, j)+l.scale*lora, i, j)
		}
	}
	return merged
}

// ToMergedLayer returns a plain dense layer over the merged weights
// and the base bias, for deployment without adapter overhead.
func (l *LoRALayer) ToMergedLayer(cfg Config) (*DefaultCellularLayer, error) {
	merged := l.MergedWeights()
	in := merged.Shape()[1]

	name := fmt.Sprintf("dense %d", in)
	weights := []*Weight{NewWeight(name+".weight", merged)}
	if l.baseBias != nil {
		weights = append(weights, NewWeight(name+".bias", l.baseBias.Clone()))
	}

	layer, err := NewLayer(name, tensor.Of(in), weights, op.Nop(),
		func(x *expr.Variable) expr.Producer {
			y := expr.MatMul(weights[0].Var(), x)
			if len(weights) > 1 {
				y = expr.Add(y, weights[1].Var())
			}
			return y
		})
	if err != nil {
		return nil, err
	}
	if err := layer.Init(cfg); err != nil {
		return nil, err
	}
	return layer, nil
}
