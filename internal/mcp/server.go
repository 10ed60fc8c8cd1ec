// Package mcp exposes the pipeline to operator tooling over the Model
// Context Protocol: trigger a run, inspect a folder, list the archive
// inventory. The server speaks stdio and self-terminates when its parent
// process goes away.
package mcp

import (
	"context"
	"os"
	"path/filepath"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"sindanrelay/internal/campaign"
	"sindanrelay/internal/config"
	"sindanrelay/internal/logging"
	"sindanrelay/internal/phase"
	"sindanrelay/internal/pipeline"
	"sindanrelay/internal/publish"
)

// Server wraps the MCP SDK server around one pipeline configuration.
type Server struct {
	MCPServer *sdkmcp.Server
	Cfg       *config.Config

	// Connect dials the broker for run_pipeline. Overridable so tests run
	// against an in-memory publisher.
	Connect func() (publish.Publisher, func(), error)
}

// NewServer creates an MCP server with the pipeline tools registered.
func NewServer(cfg *config.Config) *Server {
	s := &Server{Cfg: cfg}
	s.Connect = s.connectBroker
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "sindanrelay", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_pipeline",
		Description: "Run one pipeline invocation: select eligible folders, publish, archive, sweep. Same semantics as 'sindanrelay run'.",
	}, s.handleRunPipeline)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "inspect_folder",
		Description: "Resolve the campaign id and merged phases of one run folder without publishing or archiving.",
	}, s.handleInspectFolder)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_archives",
		Description: "List the zip archives currently in the archive root with size and age.",
	}, s.handleListArchives)
}

func (s *Server) connectBroker() (publish.Publisher, func(), error) {
	pub, err := publish.ConnectMQTT(publish.MQTTOptions{
		Broker:   s.Cfg.Broker,
		ClientID: s.Cfg.ClientID,
		Username: s.Cfg.Username,
		Password: s.Cfg.Password,
		QoS:      byte(s.Cfg.QoS),
		Retain:   s.Cfg.Retain,
		Timeout:  s.Cfg.PublishTimeout.Std(),
	})
	if err != nil {
		return nil, nil, err
	}
	return pub, pub.Close, nil
}

// --- Tool input/output types ---

type runPipelineInput struct{}

type runPipelineOutput struct {
	Archived int      `json:"archived"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Swept    int      `json:"swept"`
	Folders  []string `json:"folders,omitempty"`
}

type inspectFolderInput struct {
	Folder string `json:"folder" jsonschema:"run folder path, or bare folder name under the unsent root"`
}

type inspectFolderOutput struct {
	Folder   string   `json:"folder"`
	Campaign string   `json:"campaign"`
	Phases   []int    `json:"phases"`
	Topics   []string `json:"topics"`
	Warnings []string `json:"warnings,omitempty"`
}

type listArchivesInput struct{}

type archiveEntry struct {
	Name     string `json:"name"`
	SizeByte int64  `json:"size_bytes"`
	AgeHours int64  `json:"age_hours"`
}

type listArchivesOutput struct {
	Root     string         `json:"root"`
	Archives []archiveEntry `json:"archives"`
}

// --- Handlers ---

func (s *Server) handleRunPipeline(ctx context.Context, _ *sdkmcp.CallToolRequest, _ runPipelineInput) (*sdkmcp.CallToolResult, runPipelineOutput, error) {
	logger := logging.New("mcp")

	pub, closeBroker, err := s.Connect()
	if err != nil {
		return nil, runPipelineOutput{}, err
	}
	defer closeBroker()

	summary, err := pipeline.New(s.Cfg, pub).Run(ctx)
	if err != nil {
		return nil, runPipelineOutput{}, err
	}

	archived, skipped, failed := summary.Counts()
	out := runPipelineOutput{Archived: archived, Skipped: skipped, Failed: failed, Swept: summary.SweptArchives}
	for _, r := range summary.Results {
		out.Folders = append(out.Folders, filepath.Base(r.Folder)+": "+string(r.Status))
	}
	logger.Info("run_pipeline finished", "archived", archived, "skipped", skipped, "failed", failed)
	return nil, out, nil
}

func (s *Server) handleInspectFolder(_ context.Context, _ *sdkmcp.CallToolRequest, input inspectFolderInput) (*sdkmcp.CallToolResult, inspectFolderOutput, error) {
	dir := input.Folder
	if !filepath.IsAbs(dir) && filepath.Dir(dir) == "." {
		dir = filepath.Join(s.Cfg.UnsentDir, dir)
	}

	id, err := campaign.Resolve(dir)
	if err != nil {
		return nil, inspectFolderOutput{}, err
	}

	reports, warnings := phase.LoadReports(dir, id, time.Now())
	out := inspectFolderOutput{Folder: dir, Campaign: id}
	host := publish.Hostname()
	for _, rep := range reports {
		out.Phases = append(out.Phases, rep.Phase)
		out.Topics = append(out.Topics, publish.Topic(s.Cfg.TopicBase, host, rep.Phase))
	}
	for _, w := range warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	return nil, out, nil
}

func (s *Server) handleListArchives(_ context.Context, _ *sdkmcp.CallToolRequest, _ listArchivesInput) (*sdkmcp.CallToolResult, listArchivesOutput, error) {
	out := listArchivesOutput{Root: s.Cfg.SentDir}

	matches, err := filepath.Glob(filepath.Join(s.Cfg.SentDir, "*.zip"))
	if err != nil {
		return nil, listArchivesOutput{}, err
	}
	now := time.Now()
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		out.Archives = append(out.Archives, archiveEntry{
			Name:     filepath.Base(path),
			SizeByte: info.Size(),
			AgeHours: int64(now.Sub(info.ModTime()) / time.Hour),
		})
	}
	return nil, out, nil
}
