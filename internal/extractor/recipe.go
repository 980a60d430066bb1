package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"video-recipe-go/internal/llm"
	"video-recipe-go/internal/logger"
	"video-recipe-go/internal/types"
)

type Options struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = "llama3.2"
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Minute
	}
	return o
}

// Client turns a transcript into a recipe with a single model call.
type Client struct {
	gen llm.Generator
	log *logger.Logger
}

func New(gen llm.Generator, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	return &Client{gen: gen, log: log.Component("extractor")}
}

const systemPrompt = `You extract cooking recipes from video transcripts. You reply with one JSON object and nothing else.`

// BuildPrompt builds the structuring prompt for transcript and optional video
// metadata.
func BuildPrompt(transcript string, meta *types.VideoMetadata) string {
	var b strings.Builder
	b.WriteString(`Extract the recipe described in the transcript below.

Return ONLY a JSON object with exactly these keys:
{
  "title": "string",
  "ingredients": ["string"],
  "instructions": ["string"],
  "cookingTime": "string or empty",
  "servings": "string or empty",
  "difficulty": "easy | medium | hard or empty",
  "cuisine": "string or empty",
  "tags": ["string"],
  "confidence": 0.0
}

Rules:
- Use the speaker's own words for ingredients and steps. Do not paraphrase, summarize or translate.
- Keep quantities and units exactly as spoken.
- One ingredient per array item; one step per array item, in the order given.
- If something is not mentioned, use an empty string or empty array. Do not invent it.
- confidence is your certainty from 0 to 1 that this is a complete recipe.
`)
	if meta != nil {
		if meta.Title != "" {
			fmt.Fprintf(&b, "\nVideo title: %s\n", meta.Title)
		}
		if meta.Description != "" {
			fmt.Fprintf(&b, "Video description: %s\n", truncate(meta.Description, 1500))
		}
	}
	fmt.Fprintf(&b, "\nTranscript:\n%s\n", transcript)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Structure calls the model once. The result is never nil: on a malformed
// reply it carries the raw text, on an incomplete recipe it carries Partial.
func (c *Client) Structure(ctx context.Context, transcript string, meta *types.VideoMetadata, opts Options) (*types.StructuringResult, error) {
	opts = opts.withDefaults()
	res := &types.StructuringResult{Model: opts.Model}
	log := c.log.With(logrus.Fields{"model": opts.Model, "transcript_chars": len(transcript)})

	if strings.TrimSpace(transcript) == "" {
		err := types.NewPermanentError(types.ErrRecipeStructuringFailed, "empty transcript")
		res.Error = err.Error()
		return res, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.gen.Generate(ctx, llm.GenerateRequest{
		Model:       opts.Model,
		System:      systemPrompt,
		Prompt:      BuildPrompt(transcript, meta),
		Temperature: llm.Float(opts.Temperature),
		JSON:        true,
	})
	if err != nil {
		code := types.ErrRecipeStructuringFailed
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			code = types.ErrTimeout
		}
		perr := types.WrapError(code, err, "structuring backend")
		res.Error = perr.Error()
		log.WithError(err).Warn("structuring call failed")
		return res, perr
	}
	res.Raw = resp.Text
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("structuring reply received")

	out := Parse(resp.Text)
	if out.Kind == Malformed {
		perr := types.NewError(types.ErrRecipeStructuringFailed, "model reply contained no JSON object")
		res.Error = perr.Error()
		log.WithField("raw_len", len(resp.Text)).Warn("malformed structuring reply")
		return res, perr
	}

	recipe := out.Value.recipe()
	res.Confidence = confidence(out.Value, recipe)

	if !recipe.Usable() {
		perr := types.NewError(types.ErrRecipeStructuringFailed, "recipe is missing a title or both ingredients and instructions")
		res.Error = perr.Error()
		if !recipe.Empty() {
			res.Partial = recipe
		}
		log.Warn("incomplete recipe")
		return res, perr
	}

	res.Success = true
	res.Recipe = recipe
	log.WithFields(logrus.Fields{
		"title":        recipe.Title,
		"ingredients":  len(recipe.Ingredients),
		"instructions": len(recipe.Instructions),
		"confidence":   res.Confidence,
	}).Info("recipe structured")
	return res, nil
}

func (p *payload) recipe() *types.ParsedRecipe {
	steps := []string(p.Instructions)
	if len(steps) == 0 {
		steps = p.Steps
	}
	cooking := p.CookingTime
	if cooking == "" {
		cooking = p.CookingTime2
	}
	return &types.ParsedRecipe{
		Title:        string(p.Title),
		Ingredients:  nonNil(p.Ingredients),
		Instructions: nonNil(steps),
		CookingTime:  string(cooking),
		Servings:     string(p.Servings),
		Difficulty:   strings.ToLower(string(p.Difficulty)),
		Cuisine:      string(p.Cuisine),
		Tags:         p.Tags,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func confidence(p *payload, r *types.ParsedRecipe) float64 {
	if p.Confidence != nil {
		c := *p.Confidence
		switch {
		case c < 0:
			return 0
		case c > 1:
			return 1
		}
		return c
	}
	c := 0.5
	if r.Title != "" {
		c += 0.2
	}
	if len(r.Ingredients) > 0 {
		c += 0.15
	}
	if len(r.Instructions) > 0 {
		c += 0.15
	}
	return c
}
