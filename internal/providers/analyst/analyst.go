// Package analyst implements the copilot capabilities on top of a
// multimodal LLM: OCR, scene understanding, change detection, roll-ups and
// error explanations.
package analyst

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/screencopilot/internal/cache"
	"github.com/yoockh/screencopilot/internal/copilot"
	"github.com/yoockh/screencopilot/internal/metrics"
	"github.com/yoockh/screencopilot/internal/providers/llm"
	"github.com/yoockh/screencopilot/internal/utils"
)

const defaultOCRCacheTTL = 10 * time.Minute

type Options struct {
	// OCRCache, when set, memoizes non-empty OCR results by image digest.
	OCRCache    cache.Cache
	OCRCacheTTL time.Duration
	Metrics     *metrics.Metrics
	Logger      logrus.FieldLogger
}

type Analyst struct {
	llm     llm.Provider
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

var _ copilot.Capabilities = (*Analyst)(nil)

func New(p llm.Provider, opts Options) *Analyst {
	if opts.OCRCacheTTL <= 0 {
		opts.OCRCacheTTL = defaultOCRCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Analyst{
		llm:     p,
		cache:   opts.OCRCache,
		ttl:     opts.OCRCacheTTL,
		metrics: opts.Metrics,
		log:     opts.Logger,
	}
}

func (a *Analyst) OCR(ctx context.Context, imageB64 string) (string, error) {
	img, err := decodeImage(imageB64)
	if err != nil {
		return "", utils.E(utils.CodeInvalidArgument, "Analyst.OCR", "invalid image", err)
	}
	return a.OCRImage(ctx, img)
}

// OCRImage extracts readable text from a JPEG. It returns "" when nothing is
// readable.
func (a *Analyst) OCRImage(ctx context.Context, jpeg []byte) (string, error) {
	const op = "Analyst.OCR"

	key := "ocr:" + utils.Digest(jpeg)
	if a.cache != nil {
		var cached string
		if hit, err := a.cache.GetJSON(ctx, key, &cached); err != nil {
			a.log.WithField("error", err).Warn("ocr cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	text, err := a.generate(ctx, op, "ocr", llm.Request{
		System:    ocrSystem,
		Prompt:    ocrPrompt,
		ImageJPEG: jpeg,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)

	if a.cache != nil && text != "" {
		if err := a.cache.SetJSON(ctx, key, text, a.ttl); err != nil {
			a.log.WithField("error", err).Warn("ocr cache write failed")
		}
	}
	return text, nil
}

func (a *Analyst) VisionUnderstand(ctx context.Context, imageB64 string) (copilot.Sections, error) {
	const op = "Analyst.VisionUnderstand"

	img, err := decodeImage(imageB64)
	if err != nil {
		return copilot.Sections{}, utils.E(utils.CodeInvalidArgument, op, "invalid image", err)
	}
	raw, err := a.generate(ctx, op, "vision", llm.Request{
		System:      visionSystem,
		Prompt:      visionPrompt,
		ImageJPEG:   img,
		JSON:        true,
		Temperature: 0.2,
	})
	if err != nil {
		return copilot.Sections{}, err
	}
	return parseVision(raw), nil
}

func (a *Analyst) DescribeStructuredFromOCR(ctx context.Context, text string) (copilot.Sections, error) {
	const op = "Analyst.DescribeStructuredFromOCR"

	raw, err := a.generate(ctx, op, "structured", llm.Request{
		System:      structuredSystem,
		Prompt:      text,
		JSON:        true,
		Temperature: 0.2,
	})
	if err != nil {
		return copilot.Sections{}, err
	}
	return parseSections(raw, "OCR text shows on-screen labels, chat, or UI elements."), nil
}

func (a *Analyst) ChatAnswer(ctx context.Context, prompt, imageB64 string) (string, error) {
	const op = "Analyst.ChatAnswer"

	req := llm.Request{System: chatSystem, Prompt: prompt, Temperature: 0.2}
	if imageB64 != "" {
		img, err := decodeImage(imageB64)
		if err != nil {
			a.log.WithField("error", err).Debug("answering without frame")
		} else {
			req.ImageJPEG = img
		}
	}
	text, err := a.generate(ctx, op, "chat", req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (a *Analyst) DiffOCRPair(ctx context.Context, prev, curr copilot.OCREntry) (copilot.Sections, error) {
	const op = "Analyst.DiffOCRPair"

	raw, err := a.generate(ctx, op, "diff_ocr", llm.Request{
		System:      diffOCRSystem,
		Prompt:      ocrPairPrompt(prev, curr),
		JSON:        true,
		Temperature: 0.2,
	})
	if err != nil {
		return copilot.Sections{}, err
	}
	return parseSections(raw, "Changes summarized."), nil
}

func (a *Analyst) DiffVisualPair(ctx context.Context, prev, curr copilot.VisualEntry) (string, error) {
	const op = "Analyst.DiffVisualPair"

	text, err := a.generate(ctx, op, "diff_visual", llm.Request{
		System:      diffVisualSystem,
		Prompt:      visualPairPrompt(prev, curr),
		Temperature: 0.25,
	})
	if err != nil {
		return "", err
	}
	return orDefault(text, "(no visual change summary)"), nil
}

func (a *Analyst) RollupOCR(ctx context.Context, entries []copilot.OCREntry) (copilot.Sections, error) {
	const op = "Analyst.RollupOCR"

	raw, err := a.generate(ctx, op, "rollup_ocr", llm.Request{
		System:      rollupOCRSystem,
		Prompt:      "Recent OCR snapshots (newest last):\n\n" + ocrBundle(entries),
		JSON:        true,
		Temperature: 0.3,
	})
	if err != nil {
		return copilot.Sections{}, err
	}
	return parseSections(raw, "Summary ready."), nil
}

func (a *Analyst) RollupVisual(ctx context.Context, entries []copilot.VisualEntry) (string, error) {
	const op = "Analyst.RollupVisual"

	text, err := a.generate(ctx, op, "rollup_visual", llm.Request{
		System:      rollupVisualSystem,
		Prompt:      "Recent visual summaries (newest last):\n\n" + visualBundle(entries),
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	return orDefault(text, "(no summary)"), nil
}

func (a *Analyst) ExplainError(ctx context.Context, ocrText string) (copilot.Sections, error) {
	const op = "Analyst.ExplainError"

	raw, err := a.generate(ctx, op, "explain_error", llm.Request{
		System:      explainSystem,
		Prompt:      "OCR from screen (logs/stack traces allowed):\n\n" + ocrText,
		JSON:        true,
		Temperature: 0.2,
	})
	if err != nil {
		return copilot.Sections{}, err
	}
	return parseSections(raw, "Error explained."), nil
}

func (a *Analyst) generate(ctx context.Context, op, capability string, req llm.Request) (string, error) {
	start := time.Now()
	out, err := a.llm.Generate(ctx, req)
	a.metrics.ObserveCapability(capability, time.Since(start), err)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "capability failed", err)
	}
	return out, nil
}

// decodeImage accepts bare base64 or a data URL.
func decodeImage(b64 string) ([]byte, error) {
	if i := strings.Index(b64, ";base64,"); i >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
