package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"floating-dictionary/src/config"
	"floating-dictionary/src/logutil"
	"floating-dictionary/src/ocr"
	"floating-dictionary/src/presenter"
	"floating-dictionary/src/runtimeinit"
	"floating-dictionary/src/session"
	"floating-dictionary/src/translate"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

type cliOptions struct {
	filePath   string
	jsonOutput bool
	verbose    bool
	target     string
	ocrLang    string
	noDict     bool
}

// collaborators are the pipeline stages after capture.
type collaborators struct {
	recognize  session.Recognizer
	translate  session.Translator
	dictionary session.Dictionary // nil disables lookups
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(os.Args)
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"fdict-image"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fdict-image",
		Short:         "Recognize and translate the text of an image file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to a PNG or JPEG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Translation target language")
	cmd.Flags().StringVar(&opts.ocrLang, "ocr-lang", ocr.Auto, "OCR model id or auto")
	cmd.Flags().BoolVar(&opts.noDict, "no-dict", false, "Skip the dictionary lookup for single English words")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			TargetOverride:  opts.target,
			OCRLangOverride: opts.ocrLang,
		},
		Verbose:       opts.verbose,
		NoFileLogging: true,
	})
	if err != nil {
		return err
	}
	cfg, langs := rt.Config, rt.Languages

	img, err := readImage(opts.filePath, stdin)
	if err != nil {
		return err
	}

	c := collaborators{
		recognize: ocr.NewEnsemble(ocr.NewTesseract(cfg.TessdataDir), cfg.OCRWorkers),
		translate: translate.NewClient(translate.Config{
			BaseURL:    cfg.TranslateURL,
			Timeout:    cfg.HTTPTimeout,
			RetryDelay: cfg.RetryDelay,
		}),
	}
	if !opts.noDict {
		c.dictionary = translate.NewDictionaryClient(cfg.DictionaryURL, cfg.HTTPTimeout, nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OCRDeadline)
	defer cancel()

	res, err := process(ctx, c, img, langs, cfg.TargetLang)
	if err != nil {
		return err
	}
	res.Source = opts.filePath
	return outputResult(stdout, res, opts.jsonOutput)
}

func readImage(filePath string, stdin io.Reader) (image.Image, error) {
	var data []byte
	var err error
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("input is not a supported image: %w", err)
	}
	return img, nil
}

// Result is the JSON shape of one run.
type Result struct {
	Source          string   `json:"source"`
	Text            string   `json:"text"`
	Model           string   `json:"model,omitempty"`
	Confidence      float64  `json:"confidence"`
	SourceLang      string   `json:"source_lang,omitempty"`
	TargetLang      string   `json:"target_lang"`
	Translation     string   `json:"translation"`
	Definitions     []string `json:"definitions,omitempty"`
	Examples        []string `json:"examples,omitempty"`
	DurationSeconds float64  `json:"duration_seconds"`

	content presenter.Content
}

// process runs recognition, translation and the optional dictionary lookup
// in the order the interactive session does.
func process(ctx context.Context, c collaborators, img image.Image, langs ocr.LanguageSet, target string) (Result, error) {
	logger := logutil.Component("cli")
	start := time.Now()

	rec, err := c.recognize.Recognize(ctx, img, langs)
	if err != nil {
		return Result{}, fmt.Errorf("OCR failed: %w", err)
	}
	text := ocr.CleanText(rec.Text)
	logger.Debug().Str("text", logutil.SanitizeForLog(text)).Str("model", rec.Winner.LanguageID).Msg("recognized")

	resp, err := c.translate.Translate(ctx, translate.Request{Text: text, TargetLang: target})
	if err != nil {
		return Result{}, fmt.Errorf("translation failed: %w", err)
	}

	var entry *translate.DictionaryEntry
	if c.dictionary != nil && translate.WantsDictionary(text, target) {
		entry, err = c.dictionary.Lookup(ctx, text)
		if err != nil {
			logger.Debug().Err(err).Msg("dictionary lookup failed")
			entry = nil
		}
	}

	return Result{
		Text:            text,
		Model:           rec.Winner.LanguageID,
		Confidence:      rec.Winner.MeanConfidence,
		SourceLang:      resp.ResolvedSourceLang,
		TargetLang:      target,
		Translation:     resp.TranslatedText,
		Definitions:     entry.Definitions(),
		Examples:        entry.ExampleLines(),
		DurationSeconds: time.Since(start).Seconds(),
		content: presenter.Content{
			SearchText:  text,
			SourceLang:  resp.ResolvedSourceLang,
			TargetLang:  target,
			Translation: resp.TranslatedText,
			Dictionary:  entry,
		},
	}, nil
}

func outputResult(w io.Writer, res Result, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}
	_, err := io.WriteString(w, res.content.PlainText()+"\n")
	return err
}
