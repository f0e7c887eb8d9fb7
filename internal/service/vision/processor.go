package vision

import (
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/models"
)

// FrameResult is what one frame produced on its way through decode, suppress and confirm.
type FrameResult struct {
	Decoded   int                // candidates above the decode threshold
	Kept      []models.Detection // survivors of suppression, strongest first
	Progress  int                // confirmation streak after this frame
	Trigger   *models.Detection  // set on the frame that completes a streak
	DecodeErr error              // shape error; the frame counts as empty
}

// Suppressed is how many decoded candidates suppression removed.
func (r FrameResult) Suppressed() int {
	return r.Decoded - len(r.Kept)
}

// Processor chains Decoder, Suppress and Gate for the detection loop.
type Processor struct {
	decoder      *Decoder
	iouThreshold float32
	gate         *Gate
}

func NewProcessor(decoder *Decoder, iouThreshold float32, gate *Gate) *Processor {
	return &Processor{decoder: decoder, iouThreshold: iouThreshold, gate: gate}
}

// Process runs one frame. busy is the sequencer state read for this frame.
func (p *Processor) Process(t Tensor, frameW, frameH int, busy bool) FrameResult {
	var res FrameResult

	decoded, err := p.decoder.Decode(t, frameW, frameH)
	if err != nil {
		res.DecodeErr = err
	}
	res.Decoded = len(decoded)
	res.Kept = Suppress(decoded, p.iouThreshold)

	var best *models.Detection
	if len(res.Kept) > 0 {
		best = &res.Kept[0]
	}
	if det, fired := p.gate.Observe(best, busy); fired {
		res.Trigger = &det
	}
	res.Progress = p.gate.Count()
	return res
}

func (p *Processor) Gate() *Gate {
	return p.gate
}

func (p *Processor) Decoder() *Decoder {
	return p.decoder
}
