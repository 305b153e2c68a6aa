package copilot

import (
	"context"
	"strings"

	"github.com/yoockh/screencopilot/internal/protocol"
)

const (
	errPrefix      = "(error)"
	errHiresPrefix = "(error processing high-res snapshot)"

	msgOCREmpty = "OCR empty (tiny text / low contrast / UI chrome)."

	ReasonOCREmpty       = "ocr_empty"
	ReasonUserQueryStale = "user_query_stale_frame"

	maxSpanEntries = 20
)

// IngestThumbnail handles a downscaled frame. Frames that are not ingest-only
// are answered with a fused scene description. Ingest-only frames feed OCR
// history and drive the periodic vision and rolling-context passes.
func (s *Session) IngestThumbnail(ctx context.Context, msg protocol.SnapshotThumbnail) {
	s.frame.Store(msg.JPEG, s.clock.Now())

	if !msg.IngestOnly {
		text, vision, err := s.describeFused(ctx, msg.JPEG)
		if err != nil {
			s.send(ctx, protocol.SceneDescription{Text: s.capabilityFailed("describe", errPrefix, err)})
			return
		}
		s.recordVision(ctx, vision)
		s.send(ctx, protocol.SceneDescription{Text: text})
		return
	}

	if last, ok := s.history.LastHash(); ok && msg.Hash != "" && msg.Hash == last {
		s.metrics.IncIngest("unchanged")
		return
	}

	text, err := s.caps.OCR(ctx, msg.JPEG)
	if err != nil {
		s.send(ctx, protocol.IngestError{Text: s.capabilityFailed("ocr", errPrefix, err)})
		return
	}

	if strings.TrimSpace(text) == "" {
		s.metrics.IncIngest("ocr_empty")
		s.send(ctx, protocol.IngestError{Text: msgOCREmpty})
		s.send(ctx, protocol.RequestSnapshotHires{Reason: ReasonOCREmpty})
	} else {
		s.metrics.IncIngest("ocr")
		s.history.PushOCR(text)
		if msg.Hash != "" {
			s.history.SetLastHash(msg.Hash)
		}
		for _, done := range s.tasks.CheckAndAlert(text) {
			s.metrics.IncTaskResolution(done.Status)
			s.send(ctx, done)
		}
	}

	counter := s.history.BumpIngestCounter()
	var lastKeyItems []string
	if last := s.history.LatestVisual(1); len(last) == 1 {
		lastKeyItems = last[0].KeyItems
	}
	plan := PlanIngest(counter, lastKeyItems,
		s.settings.VisionEveryDefault, s.settings.VisionEveryStream, s.settings.ContextEvery)

	if plan.Vision {
		s.visionSweep(ctx, msg.JPEG)
	}
	if plan.Rollup {
		s.rollupUpdate(ctx)
	}
}

// IngestHires answers an on-demand high resolution snapshot with the fused
// vision and OCR reading of it.
func (s *Session) IngestHires(ctx context.Context, msg protocol.SnapshotHires) {
	s.frame.Store(msg.JPEG, s.clock.Now())

	text, vision, err := s.describeFused(ctx, msg.JPEG)
	if err != nil {
		s.send(ctx, protocol.StructuredAnswer{Text: s.capabilityFailed("describe", errHiresPrefix, err)})
		return
	}
	s.recordVision(ctx, vision)
	s.send(ctx, protocol.StructuredAnswer{Text: text})

	if s.archiver != nil {
		s.archiver.ArchiveSnapshot(ctx, s.ID, msg.JPEG, vision)
	}
}

// describeFused runs vision on the image and, when OCR finishes in time with
// some text, merges the OCR-derived sections into the vision result. The
// returned Sections is the vision-only result.
func (s *Session) describeFused(ctx context.Context, b64 string) (string, Sections, error) {
	vision, err := s.caps.VisionUnderstand(ctx, b64)
	if err != nil {
		return "", Sections{}, err
	}

	fused := vision
	if text := s.ocrWithTimeout(ctx, b64); strings.TrimSpace(text) != "" {
		fromOCR, err := s.caps.DescribeStructuredFromOCR(ctx, text)
		if err != nil {
			return "", Sections{}, err
		}
		fused = MergeSections(vision, fromOCR)
		s.history.PushOCR(text)
	}
	return RenderSections(fused), vision, nil
}

// ocrWithTimeout returns "" when OCR fails or does not finish within the
// configured timeout.
func (s *Session) ocrWithTimeout(ctx context.Context, b64 string) string {
	ctx, cancel := context.WithTimeout(ctx, s.settings.OCRTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := s.caps.OCR(ctx, b64)
		ch <- result{text, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			s.log.WithField("error", r.err).Debug("ocr failed on fused path")
			return ""
		}
		return r.text
	case <-ctx.Done():
		s.log.Debug("ocr timed out on fused path")
		return ""
	}
}

func (s *Session) recordVision(ctx context.Context, vision Sections) {
	s.history.PushVisual(vision.Summary, vision.KeyItems)
	if len(vision.Suggestions) > 0 {
		s.send(ctx, protocol.SuggestedActions{Actions: vision.Suggestions})
	}
}

func (s *Session) visionSweep(ctx context.Context, b64 string) {
	vision, err := s.caps.VisionUnderstand(ctx, b64)
	if err != nil {
		s.send(ctx, protocol.IngestError{Text: s.capabilityFailed("vision", errPrefix, err)})
		return
	}
	s.metrics.IncIngest("vision")
	s.recordVision(ctx, vision)

	ocr, visual := s.history.OCRHistory(), s.history.VisualHistory()
	longest := max(len(ocr), len(visual))

	var from *int64
	if len(visual) >= len(ocr) && len(visual) > 0 {
		from = milliPtr(visual[max(0, len(visual)-maxSpanEntries)].Timestamp.UnixMilli())
	} else if len(ocr) > 0 {
		from = milliPtr(ocr[max(0, len(ocr)-maxSpanEntries)].Timestamp.UnixMilli())
	}

	s.send(ctx, protocol.ContextUpdate{
		Text:       RenderSections(vision),
		Count:      longest,
		WindowUsed: min(maxSpanEntries, longest),
		Span:       protocol.Span{From: from, To: s.nowMilli()},
	})
}

func (s *Session) rollupUpdate(ctx context.Context) {
	ocrLen, _ := s.history.Lens()
	n := RollupWindow(ocrLen)

	text, err := s.summarizer.RollingContext(ctx, n)
	if err != nil {
		s.send(ctx, protocol.IngestError{Text: s.capabilityFailed("rollup", errPrefix, err)})
		return
	}
	s.metrics.IncIngest("rollup")

	ocr, visual := s.history.OCRHistory(), s.history.VisualHistory()
	var from *int64
	if len(ocr) > 0 {
		from = milliPtr(ocr[max(0, len(ocr)-n)].Timestamp.UnixMilli())
	} else if len(visual) > 0 {
		from = milliPtr(visual[max(0, len(visual)-n)].Timestamp.UnixMilli())
	}

	s.send(ctx, protocol.ContextUpdate{
		Text:       text,
		Count:      max(len(ocr), len(visual)),
		WindowUsed: n,
		Span:       protocol.Span{From: from, To: s.nowMilli()},
	})
}

func milliPtr(v int64) *int64 { return &v }
