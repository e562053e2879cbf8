// =============================================================================
// KnowBase 主入口
// =============================================================================
// 知识库命令行工具，包含文档入库、多查询检索与数据库迁移
//
// 使用方法:
//
//	knowbase ingest --file doc.md --id doc-1      # 入库文档
//	knowbase query "如何申请退款"                  # 多查询检索
//	knowbase migrate up                           # 运行数据库迁移
//	knowbase migrate status                       # 查看迁移状态
//	knowbase version                              # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/knowbase/config"
	"github.com/BaSui01/knowbase/rag"
	"github.com/BaSui01/knowbase/types"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "ingest":
		runIngest(args)
	case "query":
		runQuery(args)
	case "migrate":
		runMigrate(args)
	case "version":
		fmt.Printf("knowbase %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`KnowBase - RAG knowledge base toolkit

Usage:
  knowbase <command> [options]

Commands:
  ingest    Chunk, embed and store a document
  query     Run a multi-query retrieval against the knowledge base
  migrate   Manage database schema migrations
  version   Show version information
  help      Show this help message

Options:
  --config <path>   Path to configuration file (YAML)

Environment:
  KNOWBASE_LLM_API_KEY         Chat completion API key (query expansion)
  KNOWBASE_EMBEDDING_API_KEY   Embedding API key (falls back to LLM key)`)
}

// loadConfig 加载配置文件与环境变量覆盖
func loadConfig(configPath string) (*config.Config, error) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	return loader.Load()
}

// buildStack 组装存储、入库管线与检索器共用的组件
func buildStack(cfg *config.Config, storeType string, logger *zap.Logger) (rag.VectorStore, error) {
	return rag.NewVectorStoreFromConfig(storeType, cfg, logger)
}

// runIngest 入库一个本地文档
func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	filePath := fs.String("file", "", "Path to the document file")
	docID := fs.String("id", "", "Document ID")
	title := fs.String("title", "", "Document title")
	category := fs.String("category", "", "Document category")
	storeType := fs.String("store", "pgvector", "Vector store type (memory, pgvector)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *filePath == "" || *docID == "" {
		fmt.Fprintln(os.Stderr, "ingest requires --file and --id")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	content, err := os.ReadFile(*filePath)
	if err != nil {
		fatalf("failed to read document: %v", err)
	}

	store, err := buildStack(cfg, *storeType, logger)
	if err != nil {
		fatalf("failed to create vector store: %v", err)
	}

	ingestor, err := rag.NewIngestorFromConfig(cfg, store, nil, logger)
	if err != nil {
		fatalf("failed to create ingestor: %v", err)
	}

	doc := &types.Document{
		ID:       *docID,
		Title:    *title,
		Category: *category,
		Status:   types.StatusReady,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := ingestor.IngestDocument(ctx, doc, string(content))
	if err != nil {
		fatalf("ingestion failed: %v", err)
	}

	fmt.Printf("Ingested %s: %d chunks, ~%d tokens, ~$%.6f\n",
		doc.ID, result.ChunkCount, result.EstimatedTokens, result.EstimatedCost)
}

// runQuery 执行一次多查询检索并打印证据
func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	storeType := fs.String("store", "pgvector", "Vector store type (memory, pgvector)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "query requires a query string")
		os.Exit(1)
	}
	query := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	store, err := buildStack(cfg, *storeType, logger)
	if err != nil {
		fatalf("failed to create vector store: %v", err)
	}

	retriever, err := rag.NewRetrieverFromConfig(cfg, store, nil, logger)
	if err != nil {
		fatalf("failed to create retriever: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	evidence, err := retriever.MultiQuerySearch(ctx, query)
	if err != nil {
		fatalf("retrieval failed: %v", err)
	}

	if len(evidence) == 0 {
		fmt.Println("No matching evidence found.")
		return
	}

	for i, hit := range evidence {
		fmt.Printf("--- #%d (%.4f) %s [%s]\n%s\n\n",
			i+1, hit.Similarity, hit.DocumentTitle, hit.DocumentID, hit.Content)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
