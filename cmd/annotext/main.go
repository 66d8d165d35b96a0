package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"annotext/internal/annotate"
	"annotext/internal/blockid"
	"annotext/internal/config"
	"annotext/internal/dictionary"
	"annotext/internal/document"
	"annotext/internal/editor"
	"annotext/internal/extractor"
	"annotext/internal/generator"
	"annotext/internal/lifecycle"
	"annotext/internal/matcher"
	"annotext/internal/output"
	"annotext/internal/pipeline"
	"annotext/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "annotext",
		Short: "Dictionary-driven annotation of HTML documents",
	}
	configPath string
	dbPath     string
	dictPath   string
	outPath    string
	writeBack  bool
	force      bool
	annotated  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the word registry database (SQLite)")
	rootCmd.PersistentFlags().StringVar(&dictPath, "dict", "", "Path to the dictionary file")

	annotateCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the annotated document to this file instead of stdout")
	assignIDsCmd.Flags().BoolVarP(&writeBack, "write", "w", false, "Rewrite the document in place")
	syncCmd.Flags().BoolVarP(&writeBack, "write", "w", false, "Rewrite synced documents in place")
	syncCmd.Flags().BoolVar(&force, "force", false, "Sync every document when git reports no changes")
	treeCmd.Flags().BoolVarP(&annotated, "annotate", "a", false, "Annotate the document before drawing it")

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(assignIDsCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(treeCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if dictPath != "" {
		cfg.Dictionary.Path = dictPath
	}
	return cfg
}

// loadMatcher compiles the configured dictionary.
func loadMatcher(cfg *config.Config) *matcher.Trie {
	dict, err := dictionary.Load(cfg.Dictionary.Path)
	if err != nil {
		log.Fatalf("Failed to load dictionary: %v", err)
	}
	var opts []matcher.Option
	if cfg.Dictionary.FoldCase {
		opts = append(opts, matcher.WithFoldCase())
	}
	return matcher.Compile(dict, opts...)
}

func extract(path string) *document.Tree {
	tree, err := extractor.NewExtractor(nil).ExtractFromFile(path)
	if err != nil {
		log.Fatalf("Failed to read document: %v", err)
	}
	return tree
}

// annotateTree settles tree with the annotation transforms attached.
func annotateTree(tree *document.Tree, m *matcher.Trie) *editor.Editor {
	ed := editor.New(tree)
	if _, err := annotate.Attach(ed, m); err != nil {
		log.Fatalf("Failed to attach annotation engine: %v", err)
	}
	if err := ed.Update(func(*document.Tree) error { return nil }); err != nil {
		log.Fatalf("Failed to annotate document: %v", err)
	}
	return ed
}

func render(w io.Writer, r document.Reader) {
	if err := generator.NewHTMLGenerator().Render(w, r); err != nil {
		log.Fatalf("Failed to render document: %v", err)
	}
}

var matchCmd = &cobra.Command{
	Use:   "match [text...]",
	Short: "Show the dictionary terms found in text (reads stdin without arguments)",
	Run: func(cmd *cobra.Command, args []string) {
		m := loadMatcher(loadConfig())

		lines := []string{strings.Join(args, " ")}
		if len(args) == 0 {
			lines = lines[:0]
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				log.Fatalf("Failed to read input: %v", err)
			}
		}

		total := 0
		for _, line := range lines {
			matches := m.FindAllMatches(line)
			total += len(matches)
			fmt.Println(output.Highlight(line, matches))
			for _, l := range output.MatchLines(matches) {
				fmt.Println("  " + l)
			}
		}
		fmt.Printf("🔎 %d matches against %d terms.\n", total, m.Len())
	},
}

var annotateCmd = &cobra.Command{
	Use:   "annotate <file>",
	Short: "Annotate every dictionary term in an HTML document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m := loadMatcher(loadConfig())
		ed := annotateTree(extract(args[0]), m)

		if outPath == "" {
			render(os.Stdout, ed.Tree())
			return
		}
		if err := generator.NewHTMLGenerator().WriteFile(outPath, ed.Tree()); err != nil {
			log.Fatalf("Failed to write %s: %v", outPath, err)
		}
		fmt.Printf("✅ Annotated document written to %s\n", outPath)
	},
}

var assignIDsCmd = &cobra.Command{
	Use:   "assign-ids <file>",
	Short: "Give every top-level block a unique identifier",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ed := editor.New(extract(args[0]))
		blockid.New(cfg.Blocks.Prefix, blockid.WithAttribute(cfg.Blocks.Attribute)).Attach(ed)

		if !ed.Dispatch(blockid.CommandAssign, nil) {
			log.Fatalf("Block id assignment failed")
		}

		if !writeBack {
			render(os.Stdout, ed.Tree())
			return
		}
		if err := generator.NewHTMLGenerator().WriteFile(args[0], ed.Tree()); err != nil {
			log.Fatalf("Failed to write %s: %v", args[0], err)
		}
		fmt.Printf("✅ Block ids assigned in %s\n", args[0])
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "List the logical word ids present in old but missing from new",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		prev, cur := extract(args[0]), extract(args[1])

		sink := lifecycle.SinkFunc(func(namespace, id string) error {
			fmt.Println(output.Deleted(namespace, id))
			return nil
		})
		deleted := lifecycle.New(sink, cfg.Tracking.Namespaces).Diff(prev, cur)
		fmt.Printf("📉 %d words deleted.\n", len(deleted))
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Annotate changed documents and record deleted words in the registry",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		m := loadMatcher(cfg)

		store, err := storage.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		s := pipeline.NewIncrementalSync(cfg, store, m)
		s.WriteBack = writeBack
		if _, err := s.Run(ctx, force); err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		fmt.Printf("🎉 Sync complete! Database: %s\n", cfg.Storage.Path)
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Draw the document tree of an HTML document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tree := extract(args[0])
		var r document.Reader = tree
		if annotated {
			r = annotateTree(tree, loadMatcher(loadConfig())).Tree()
		}
		fmt.Println(output.NewVisualDocumentTree(filepath.Base(args[0]), r).Render())
	},
}
