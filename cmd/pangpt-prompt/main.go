package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"pangpt-go/infer"
	"pangpt-go/pangpt"
	"pangpt-go/vocab"
)

func main() {
	godotenv.Load()

	modelPath := flag.String("model", os.Getenv("PANGPT_MODEL_PATH"), "Path to the exported ONNX model")
	tokenizerType := flag.String("tokenizer", "WordLevel", "Tokenizer type to use, WordLevel or BPE")
	tokenizerPath := flag.String("tokenizer_path", "./pangenome_tokenizer.json", "Path to the trained tokenizer")
	prompt := flag.String("prompt", "", "Prompt text; gaps to fill are written as <mask>")
	promptFile := flag.String("prompt_file", "", "Read the prompt from a file instead of -prompt")
	temperature := flag.Float64("temperature", 1.0, "Sampling temperature")
	maxTokens := flag.Int("max_tokens", 256, "Maximum number of tokens to generate")
	numSeqs := flag.Int("num_seqs", 1, "Number of completions to sample")
	seed := flag.Uint64("seed", 42, "Random seed for sampling")
	flag.Parse()

	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -model is required.")
		flag.Usage()
		os.Exit(1)
	}

	text := *prompt
	if *promptFile != "" {
		data, err := os.ReadFile(*promptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot read prompt file: %v\n", err)
			os.Exit(1)
		}
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "Enter a prompt (end with EOF):")
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		text = strings.TrimSpace(strings.Join(lines, " "))
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "Error: empty prompt.")
		os.Exit(1)
	}

	tokenizer, err := loadTokenizer(*tokenizerType, *tokenizerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if closer, ok := tokenizer.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	model, err := infer.NewONNXModel(*modelPath, tokenizer.VocabSize())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer model.Close()

	for i := 0; i < *numSeqs; i++ {
		gen := infer.NewGenerator(model, tokenizer, *temperature, *maxTokens, *seed+uint64(i))
		completion, err := gen.Complete(text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if *numSeqs > 1 {
			fmt.Printf("[%d] %s\n", i+1, completion)
		} else {
			fmt.Println(completion)
		}
	}
}

func loadTokenizer(kind, path string) (pangpt.Tokenizer, error) {
	switch pangpt.TokenizerType(kind) {
	case pangpt.TokenizerBPE:
		return vocab.NewBPE(path)
	case pangpt.TokenizerWordLevel:
		return vocab.LoadWordLevel(path)
	default:
		return nil, fmt.Errorf("unknown tokenizer type %q", kind)
	}
}
