package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

func det(x1, y1, x2, y2, conf float32, class uint) models.Detection {
	return models.Detection{Box: models.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}, Confidence: conf, ClassID: class}
}

func TestIoU(t *testing.T) {
	a := models.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}

	assert.InDelta(t, 1.0, IoU(a, a), 1e-6)
	assert.InDelta(t, 0.0, IoU(a, models.Rect{X1: 20, Y1: 20, X2: 30, Y2: 30}), 1e-6)
	// half overlap: 50 / (100 + 100 - 50)
	assert.InDelta(t, 1.0/3.0, IoU(a, models.Rect{X1: 5, Y1: 0, X2: 15, Y2: 10}), 1e-6)

	zero := models.Rect{X1: 5, Y1: 5, X2: 5, Y2: 5}
	assert.Equal(t, float32(0), IoU(zero, zero))
}

func TestSuppress_FullOverlapKeepsHigher(t *testing.T) {
	for _, threshold := range []float32{0, 0.3, 0.5, 0.99} {
		kept := Suppress([]models.Detection{
			det(10, 10, 50, 50, 0.6, 0),
			det(10, 10, 50, 50, 0.9, 0),
		}, threshold)

		require.Len(t, kept, 1, "threshold %v", threshold)
		assert.Equal(t, float32(0.9), kept[0].Confidence)
	}
}

func TestSuppress_LowOverlapBothSurvive(t *testing.T) {
	kept := Suppress([]models.Detection{
		det(0, 0, 10, 10, 0.9, 0),
		det(5, 0, 15, 10, 0.8, 0), // IoU 1/3
	}, 0.45)

	require.Len(t, kept, 2)
	assert.Equal(t, float32(0.9), kept[0].Confidence)
	assert.Equal(t, float32(0.8), kept[1].Confidence)
}

func TestSuppress_Disjoint(t *testing.T) {
	kept := Suppress([]models.Detection{
		det(0, 0, 10, 10, 0.5, 0),
		det(100, 100, 110, 110, 0.7, 0),
		det(200, 200, 210, 210, 0.6, 0),
	}, 0.1)

	require.Len(t, kept, 3)
	assert.Equal(t, []float32{0.7, 0.6, 0.5}, []float32{kept[0].Confidence, kept[1].Confidence, kept[2].Confidence})
}

func TestSuppress_ClusterChain(t *testing.T) {
	// b overlaps a heavily, c overlaps b but not a. Greedy keeps a, drops b, then keeps c.
	a := det(0, 0, 10, 10, 0.9, 0)
	b := det(1, 0, 11, 10, 0.8, 0)
	c := det(9, 0, 19, 10, 0.7, 0)

	kept := Suppress([]models.Detection{c, b, a}, 0.5)

	require.Len(t, kept, 2)
	assert.Equal(t, a, kept[0])
	assert.Equal(t, c, kept[1])
}

func TestSuppress_CrossClass(t *testing.T) {
	kept := Suppress([]models.Detection{
		det(10, 10, 50, 50, 0.9, 0),
		det(11, 11, 50, 50, 0.8, 3),
	}, 0.45)

	require.Len(t, kept, 1)
	assert.Equal(t, uint(0), kept[0].ClassID)
}

func TestSuppress_PermutationInvariant(t *testing.T) {
	in := []models.Detection{
		det(0, 0, 10, 10, 0.9, 0),
		det(1, 1, 10, 10, 0.8, 0),
		det(50, 50, 60, 60, 0.85, 0),
		det(51, 51, 60, 60, 0.3, 0),
		det(100, 0, 120, 20, 0.4, 0),
	}
	want := Suppress(in, 0.45)

	perms := [][]int{{4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}, {1, 3, 0, 4, 2}}
	for _, p := range perms {
		shuffled := make([]models.Detection, len(in))
		for i, j := range p {
			shuffled[i] = in[j]
		}
		assert.Equal(t, want, Suppress(shuffled, 0.45))
	}
}

func TestSuppress_StableOnTies(t *testing.T) {
	a := det(0, 0, 10, 10, 0.7, 1)
	b := det(0, 0, 10, 10, 0.7, 2)

	kept := Suppress([]models.Detection{a, b}, 0.5)
	require.Len(t, kept, 1)
	assert.Equal(t, a, kept[0])

	kept = Suppress([]models.Detection{b, a}, 0.5)
	require.Len(t, kept, 1)
	assert.Equal(t, b, kept[0])
}

func TestSuppress_DoesNotMutateInput(t *testing.T) {
	in := []models.Detection{det(0, 0, 10, 10, 0.1, 0), det(50, 50, 60, 60, 0.9, 0)}
	Suppress(in, 0.5)
	assert.Equal(t, float32(0.1), in[0].Confidence)
}

func TestSuppress_Empty(t *testing.T) {
	assert.Empty(t, Suppress(nil, 0.5))
}
