package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/nihei9/tether/envconfig"
	"github.com/nihei9/tether/logutil"
	"github.com/nihei9/tether/repair"
	"github.com/nihei9/tether/source"
	"github.com/spf13/cobra"
)

var generateFlags = struct {
	prompt       *string
	promptFile   *string
	config       *string
	backend      *string
	model        *string
	baseURL      *string
	maxTokens    *int
	temperature  *float64
	maxPending   *int
	initialTrim  *int
	maxRounds    *int
	timeout      *string
	injectErrors *bool
	verbose      *bool
	json         *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "generate <grammar file path>",
		Short: "Generate a text that stays inside a grammar",
		Long: `generate streams a continuation of a prompt from a language model. Whenever the text breaks the
grammar, the tail of the text is rolled back and a new continuation is requested.
Settings come from TETHER_* environment variables and a TOML file (see tether config), and the flags
override both.`,
		Example: `  tether generate json --prompt-file books.txt
  TETHER_BACKEND=ollama TETHER_MODEL=llama3 tether generate json -p 'json ='`,
		Args: cobra.ExactArgs(1),
		RunE: runGenerate,
	}
	generateFlags.prompt = cmd.Flags().StringP("prompt", "p", "", "prompt text")
	generateFlags.promptFile = cmd.Flags().StringP("prompt-file", "f", "", "prompt file path (default stdin)")
	generateFlags.config = cmd.Flags().String("config", "", "configuration file path (default $TETHER_CONFIG)")
	generateFlags.backend = cmd.Flags().String("backend", "", "generation backend: openai or ollama")
	generateFlags.model = cmd.Flags().String("model", "", "model name")
	generateFlags.baseURL = cmd.Flags().String("base-url", "", "endpoint of the backend")
	generateFlags.maxTokens = cmd.Flags().Int("max-tokens", 0, "token budget of one request")
	generateFlags.temperature = cmd.Flags().Float64("temperature", 0, "sampling temperature")
	generateFlags.maxPending = cmd.Flags().Int("max-pending", 0, "length at which unresolved text is requested again")
	generateFlags.initialTrim = cmd.Flags().Int("initial-trim", 0, "characters rolled back on the first violation")
	generateFlags.maxRounds = cmd.Flags().Int("max-rounds", 0, "maximum rounds, 0 for no limit")
	generateFlags.timeout = cmd.Flags().String("timeout", "", "time limit of the generation, 0 for no limit")
	generateFlags.injectErrors = cmd.Flags().Bool("inject-errors", false, "append a comma after the first closing bracket")
	generateFlags.verbose = cmd.Flags().BoolP("verbose", "v", true, "mirror fragments and repairs to stderr")
	generateFlags.json = cmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(cmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadGenerateConfig(cmd)
	if err != nil {
		return err
	}

	cg, _, err := readGrammar(args[0])
	if err != nil {
		return err
	}

	prompt, err := readPrompt()
	if err != nil {
		return err
	}

	src, err := source.New(cfg, nil)
	if err != nil {
		return err
	}

	logger := logutil.NewLogger(os.Stderr, logutil.Level(cfg.Debug, cfg.Trace))
	opts := []repair.Option{
		repair.WithLogger(logger),
	}
	if cfg.Verbose {
		fmt.Fprint(os.Stderr, prompt)
		opts = append(opts, repair.WithObserver(repair.NewWriterObserver(os.Stderr)))
	}
	c, err := repair.NewController(cg, src, repair.NewConfig(cfg), opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := c.Generate(ctx, prompt)
	if cfg.Verbose {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	if *generateFlags.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(newResultView(res))
	}
	fmt.Fprintln(os.Stdout, res.Text)
	if res.Status != repair.StatusSucceeded || !res.Complete {
		fmt.Fprintf(os.Stderr, "the generation ended with status %q; the text is %v\n", res.Status, completeness(res.Complete))
	}
	return nil
}

// loadGenerateConfig layers the defaults, the file, the environment, and finally the flags the user set.
func loadGenerateConfig(cmd *cobra.Command) (*envconfig.Config, error) {
	cfg := envconfig.Default()
	cfg.Verbose = true
	err := cfg.Overlay(*generateFlags.config)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = strings.ToLower(*generateFlags.backend)
	}
	if flags.Changed("model") {
		cfg.Model = *generateFlags.model
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = *generateFlags.baseURL
	}
	if flags.Changed("max-tokens") {
		cfg.MaxTokens = *generateFlags.maxTokens
	}
	if flags.Changed("temperature") {
		cfg.Temperature = *generateFlags.temperature
	}
	if flags.Changed("max-pending") {
		cfg.MaxPending = *generateFlags.maxPending
	}
	if flags.Changed("initial-trim") {
		cfg.InitialTrim = *generateFlags.initialTrim
	}
	if flags.Changed("max-rounds") {
		cfg.MaxRounds = *generateFlags.maxRounds
	}
	if flags.Changed("timeout") {
		d, err := time.ParseDuration(*generateFlags.timeout)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid timeout: %v", *generateFlags.timeout)
		}
		cfg.Timeout = d
	}
	if flags.Changed("inject-errors") {
		cfg.InjectErrors = *generateFlags.injectErrors
	}
	if flags.Changed("verbose") {
		cfg.Verbose = *generateFlags.verbose
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func readPrompt() (string, error) {
	if *generateFlags.prompt != "" && *generateFlags.promptFile != "" {
		return "", fmt.Errorf("You cannot specify --prompt and --prompt-file at the same time")
	}
	if *generateFlags.prompt != "" {
		return *generateFlags.prompt, nil
	}

	src := os.Stdin
	if *generateFlags.promptFile != "" {
		f, err := os.Open(*generateFlags.promptFile)
		if err != nil {
			return "", fmt.Errorf("Cannot open the prompt file %s: %w", *generateFlags.promptFile, err)
		}
		defer f.Close()
		src = f
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type resultView struct {
	Operation string `json:"operation"`
	Text      string `json:"text"`
	Status    string `json:"status"`
	Complete  bool   `json:"complete"`
	Rounds    int    `json:"rounds"`
	Requests  int    `json:"requests"`
	Repairs   int    `json:"repairs"`
	Overflows int    `json:"overflows"`
}

func newResultView(res *repair.Result) *resultView {
	return &resultView{
		Operation: res.Operation,
		Text:      res.Text,
		Status:    res.Status.String(),
		Complete:  res.Complete,
		Rounds:    res.Rounds,
		Requests:  res.Requests,
		Repairs:   res.Repairs,
		Overflows: res.Overflows,
	}
}

func completeness(complete bool) string {
	if complete {
		return "complete"
	}
	return "incomplete"
}
