package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairlensai/fairlens/internal/api"
	"github.com/fairlensai/fairlens/internal/config"
	"github.com/fairlensai/fairlens/internal/history"
)

// newAPIContext loads config, builds the client, and returns a bounded
// context for a single CLI call.
func newAPIContext(timeout time.Duration) (*api.Client, context.Context, context.CancelFunc, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	client, err := buildClient(cfg, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return client, ctx, cancel, nil
}

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage registered AI models",
	}

	cmd.AddCommand(
		newModelsListCmd(),
		newModelsGetCmd(),
		newModelsRegisterCmd(),
		newModelsUpdateCmd(),
		newModelsDeleteCmd(),
	)

	return cmd
}

func newModelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered models",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			models, err := client.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
			if len(models) == 0 {
				fmt.Println("No models registered")
				return nil
			}

			fmt.Printf("%-38s %-24s %-10s %-12s %s\n", "ID", "NAME", "VERSION", "FRAMEWORK", "RISK")
			for _, m := range models {
				fmt.Printf("%-38s %-24s %-10s %-12s %s\n", m.ID, m.Name, m.Version, m.Framework, m.RiskLevel)
			}
			return nil
		},
	}
}

func newModelsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <model-id>",
		Short: "Show one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			m, err := client.GetModel(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get model: %w", err)
			}

			fmt.Printf("ID:          %s\n", m.ID)
			fmt.Printf("Name:        %s\n", m.Name)
			fmt.Printf("Version:     %s\n", m.Version)
			fmt.Printf("Framework:   %s\n", m.Framework)
			fmt.Printf("Type:        %s\n", m.ModelType)
			fmt.Printf("Risk level:  %s\n", m.RiskLevel)
			if m.Description != "" {
				fmt.Printf("Description: %s\n", m.Description)
			}
			if len(m.Tags) > 0 {
				fmt.Printf("Tags:        %s\n", strings.Join(m.Tags, ", "))
			}
			if !m.CreatedAt.IsZero() {
				fmt.Printf("Created:     %s\n", m.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newModelsRegisterCmd() *cobra.Command {
	var req api.RegisterModelRequest
	var tags string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Name == "" {
				return fmt.Errorf("--name is required")
			}
			if tags != "" {
				req.Tags = strings.Split(tags, ",")
			}

			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			m, err := client.RegisterModel(ctx, req)
			if err != nil {
				return fmt.Errorf("register model: %w", err)
			}

			fmt.Printf("Model registered: %s (%s)\n", m.Name, m.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Model name (required)")
	cmd.Flags().StringVar(&req.Version, "model-version", "", "Model version")
	cmd.Flags().StringVar(&req.Framework, "framework", "", "ML framework (pytorch, tensorflow, sklearn, ...)")
	cmd.Flags().StringVar(&req.ModelType, "type", "", "Model type (classification, regression, llm, ...)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Model description")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")

	return cmd
}

func newModelsUpdateCmd() *cobra.Command {
	var req api.UpdateModelRequest
	var tags string

	cmd := &cobra.Command{
		Use:   "update <model-id>",
		Short: "Update a model's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if tags != "" {
				req.Tags = strings.Split(tags, ",")
			}

			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			m, err := client.UpdateModel(ctx, args[0], req)
			if err != nil {
				return fmt.Errorf("update model: %w", err)
			}

			fmt.Printf("Model updated: %s (%s)\n", m.Name, m.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "New model name")
	cmd.Flags().StringVar(&req.Version, "model-version", "", "New model version")
	cmd.Flags().StringVar(&req.Description, "description", "", "New description")
	cmd.Flags().StringVar(&req.RiskLevel, "risk-level", "", "New risk level")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")

	return cmd
}

func newModelsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model-id>",
		Short: "Delete a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			if err := client.DeleteModel(ctx, args[0]); err != nil {
				return fmt.Errorf("delete model: %w", err)
			}
			fmt.Printf("Model %s deleted\n", args[0])
			return nil
		},
	}
}

func newDatasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Manage datasets",
	}

	cmd.AddCommand(
		newDatasetsListCmd(),
		newDatasetsUploadCmd(),
		newDatasetsDeleteCmd(),
	)

	return cmd
}

func newDatasetsListCmd() *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			dsPage, err := client.ListDatasets(ctx, page, limit)
			if err != nil {
				return fmt.Errorf("list datasets: %w", err)
			}
			if len(dsPage.Datasets) == 0 {
				fmt.Println("No datasets found")
				return nil
			}

			fmt.Printf("%-38s %-24s %10s %8s  %s\n", "ID", "NAME", "ROWS", "COLS", "CREATED")
			for _, d := range dsPage.Datasets {
				created := ""
				if !d.CreatedAt.IsZero() {
					created = d.CreatedAt.Format("2006-01-02 15:04")
				}
				fmt.Printf("%-38s %-24s %10d %8d  %s\n", d.ID, d.Name, d.RowCount, d.ColumnCount, created)
			}
			fmt.Printf("\nTotal: %d\n", dsPage.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 100, "Page size")

	return cmd
}

func newDatasetsUploadCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a dataset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open dataset file: %w", err)
			}
			defer f.Close()

			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			// Uploads can be large; give them a generous deadline.
			client, ctx, cancel, err := newAPIContext(10 * time.Minute)
			if err != nil {
				return err
			}
			defer cancel()

			ds, err := client.UploadDataset(ctx, filepath.Base(path), f, name, description)
			if err != nil {
				return fmt.Errorf("upload dataset: %w", err)
			}

			fmt.Printf("Dataset uploaded: %s (%s)\n", ds.Name, ds.ID)
			if ds.RowCount > 0 {
				fmt.Printf("  Rows: %d, Columns: %d\n", ds.RowCount, ds.ColumnCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Dataset name (defaults to file name)")
	cmd.Flags().StringVar(&description, "description", "", "Dataset description")

	return cmd
}

func newDatasetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dataset-id>",
		Short: "Delete a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			if err := client.DeleteDataset(ctx, args[0]); err != nil {
				return fmt.Errorf("delete dataset: %w", err)
			}
			fmt.Printf("Dataset %s deleted\n", args[0])
			return nil
		},
	}
}

func newBiasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bias",
		Short: "Run and inspect bias analyses",
	}

	cmd.AddCommand(
		newBiasRunCmd(),
		newBiasShowCmd(),
		newBiasListCmd(),
	)

	return cmd
}

func newBiasRunCmd() *cobra.Command {
	var req api.BiasRunRequest
	var attributes, metrics string
	var useV2 bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a bias analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.ModelID == "" || req.DatasetID == "" {
				return fmt.Errorf("--model and --dataset are required")
			}
			if attributes != "" {
				req.SensitiveAttributes = strings.Split(attributes, ",")
			}
			if metrics != "" {
				req.FairnessMetrics = strings.Split(metrics, ",")
			}

			client, ctx, cancel, err := newAPIContext(5 * time.Minute)
			if err != nil {
				return err
			}
			defer cancel()

			run := client.RunBiasAnalysis
			if useV2 {
				run = client.RunBiasAnalysisV2
			}
			analysis, err := run(ctx, req)
			if err != nil {
				return fmt.Errorf("run bias analysis: %w", err)
			}

			recordRun(ctx, &history.Run{
				RemoteID:  analysis.ID,
				Kind:      history.RunKindBias,
				ModelID:   analysis.ModelID,
				DatasetID: analysis.DatasetID,
				Status:    analysis.Status,
				Score:     analysis.OverallScore,
			})

			printBiasAnalysis(analysis)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.ModelID, "model", "", "Model ID (required)")
	cmd.Flags().StringVar(&req.DatasetID, "dataset", "", "Dataset ID (required)")
	cmd.Flags().StringVar(&req.TargetColumn, "target", "", "Target column name")
	cmd.Flags().StringVar(&attributes, "attributes", "", "Comma-separated sensitive attributes")
	cmd.Flags().StringVar(&metrics, "metrics", "", "Comma-separated fairness metrics")
	cmd.Flags().BoolVar(&useV2, "v2", false, "Use the v2 analysis engine")

	return cmd
}

func newBiasShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <analysis-id>",
		Short: "Show a bias analysis result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			analysis, err := client.GetBiasAnalysis(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get bias analysis: %w", err)
			}
			printBiasAnalysis(analysis)
			return nil
		},
	}
}

func newBiasListCmd() *cobra.Command {
	var modelID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bias analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			analyses, err := client.ListBiasAnalyses(ctx, modelID)
			if err != nil {
				return fmt.Errorf("list bias analyses: %w", err)
			}
			if len(analyses) == 0 {
				fmt.Println("No bias analyses found")
				return nil
			}

			fmt.Printf("%-38s %-20s %-12s %8s\n", "ID", "MODEL", "STATUS", "SCORE")
			for _, a := range analyses {
				fmt.Printf("%-38s %-20s %-12s %8.3f\n", a.ID, a.ModelID, a.Status, a.OverallScore)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelID, "model", "", "Filter by model ID")

	return cmd
}

func printBiasAnalysis(a *api.BiasAnalysis) {
	fmt.Printf("Analysis:      %s\n", a.ID)
	fmt.Printf("Model:         %s\n", a.ModelID)
	fmt.Printf("Dataset:       %s\n", a.DatasetID)
	fmt.Printf("Status:        %s\n", a.Status)
	fmt.Printf("Overall score: %.3f\n", a.OverallScore)
	if len(a.Metrics) == 0 {
		return
	}
	fmt.Println()
	fmt.Printf("%-28s %-16s %8s %10s  %s\n", "METRIC", "ATTRIBUTE", "VALUE", "THRESHOLD", "RESULT")
	for _, m := range a.Metrics {
		result := "PASS"
		if !m.Passed {
			result = "FAIL"
		}
		fmt.Printf("%-28s %-16s %8.3f %10.3f  %s\n", m.Name, m.Attribute, m.Value, m.Threshold, result)
	}
}

func newSecurityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Run and inspect security scans",
	}

	cmd.AddCommand(
		newSecurityScanCmd(),
		newSecurityFindingsCmd(),
	)

	return cmd
}

func newSecurityScanCmd() *cobra.Command {
	var req api.SecurityScanRequest
	var categories string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Start a security scan for a model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.ModelID == "" {
				return fmt.Errorf("--model is required")
			}
			if categories != "" {
				req.Categories = strings.Split(categories, ",")
			}

			client, ctx, cancel, err := newAPIContext(5 * time.Minute)
			if err != nil {
				return err
			}
			defer cancel()

			scan, err := client.StartSecurityScan(ctx, req)
			if err != nil {
				return fmt.Errorf("start security scan: %w", err)
			}

			recordRun(ctx, &history.Run{
				RemoteID: scan.ID,
				Kind:     history.RunKindSecurity,
				ModelID:  scan.ModelID,
				Status:   scan.Status,
				Score:    scan.RiskScore,
			})

			fmt.Printf("Scan started: %s\n", scan.ID)
			fmt.Printf("Model:        %s\n", scan.ModelID)
			fmt.Printf("Status:       %s\n", scan.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.ModelID, "model", "", "Model ID (required)")
	cmd.Flags().StringVar(&req.ScanType, "type", "", "Scan type (adversarial, injection, extraction, ...)")
	cmd.Flags().StringVar(&categories, "categories", "", "Comma-separated scan categories")

	return cmd
}

func newSecurityFindingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "findings <scan-id>",
		Short: "Show findings for a security scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			scan, err := client.GetSecurityScan(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get security scan: %w", err)
			}

			fmt.Printf("Scan:       %s\n", scan.ID)
			fmt.Printf("Status:     %s\n", scan.Status)
			fmt.Printf("Risk score: %.3f\n", scan.RiskScore)
			if len(scan.Findings) == 0 {
				fmt.Println("\nNo findings")
				return nil
			}
			fmt.Println()
			fmt.Printf("%-10s %-18s %s\n", "SEVERITY", "CATEGORY", "TITLE")
			for _, f := range scan.Findings {
				fmt.Printf("%-10s %-18s %s\n", strings.ToUpper(f.Severity), f.Category, f.Title)
			}
			return nil
		},
	}
}

func newComplianceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Inspect compliance posture and generate reports",
	}

	cmd.AddCommand(
		newComplianceStatusCmd(),
		newComplianceFrameworksCmd(),
		newComplianceAssessCmd(),
		newComplianceReportCmd(),
	)

	return cmd
}

func newComplianceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show current compliance posture",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			posture, err := client.GetCompliancePosture(ctx)
			if err != nil {
				return fmt.Errorf("get compliance posture: %w", err)
			}

			fmt.Printf("Overall score: %.1f%%\n", posture.OverallScore*100)
			if posture.RiskLevel != "" {
				fmt.Printf("Risk level:    %s\n", posture.RiskLevel)
			}
			if len(posture.Frameworks) == 0 {
				return nil
			}
			fmt.Println()
			fmt.Printf("%-16s %8s %-12s %s\n", "FRAMEWORK", "SCORE", "STATUS", "GAPS")
			for _, f := range posture.Frameworks {
				fmt.Printf("%-16s %7.1f%% %-12s %d\n", f.Framework, f.Score*100, f.Status, f.Gaps)
			}
			return nil
		},
	}
}

func newComplianceFrameworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frameworks",
		Short: "List supported regulatory frameworks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			frameworks, err := client.ListFrameworks(ctx)
			if err != nil {
				return fmt.Errorf("list frameworks: %w", err)
			}
			for _, f := range frameworks {
				fmt.Println(f)
			}
			return nil
		},
	}
}

func newComplianceAssessCmd() *cobra.Command {
	var modelID, frameworks string

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Run a risk assessment for a model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelID == "" {
				return fmt.Errorf("--model is required")
			}

			req := api.RiskAssessmentRequest{ModelID: modelID}
			if frameworks != "" {
				req.Frameworks = strings.Split(frameworks, ",")
			}

			client, ctx, cancel, err := newAPIContext(2 * time.Minute)
			if err != nil {
				return err
			}
			defer cancel()

			assessment, err := client.AssessRisks(ctx, req)
			if err != nil {
				return fmt.Errorf("assess risks: %w", err)
			}

			fmt.Printf("Assessment: %s\n", assessment.ID)
			fmt.Printf("Model:      %s\n", assessment.ModelID)
			fmt.Printf("Risk level: %s\n", assessment.RiskLevel)
			fmt.Printf("Score:      %.3f\n", assessment.Score)
			if assessment.Summary != "" {
				fmt.Printf("Summary:    %s\n", assessment.Summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelID, "model", "", "Model ID (required)")
	cmd.Flags().StringVar(&frameworks, "frameworks", "", "Comma-separated frameworks (eu-ai-act, nist-rmf, ...)")

	return cmd
}

func newComplianceReportCmd() *cobra.Command {
	var framework, format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a compliance report",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(2 * time.Minute)
			if err != nil {
				return err
			}
			defer cancel()

			report, err := client.GenerateReport(ctx, framework, format)
			if err != nil {
				return fmt.Errorf("generate report: %w", err)
			}

			fmt.Printf("Report generated: %s\n", report.ID)
			if report.DownloadURL != "" {
				fmt.Printf("Download: %s\n", report.DownloadURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&framework, "framework", "", "Regulatory framework")
	cmd.Flags().StringVar(&format, "format", "pdf", "Report format (pdf, html, json)")

	return cmd
}

func newBOMCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bom",
		Short: "Manage AI bill-of-materials documents",
	}

	cmd.AddCommand(
		newBOMListCmd(),
		newBOMCreateCmd(),
		newBOMExportCmd(),
	)

	return cmd
}

func newBOMListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List BOM documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(30 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			docs, err := client.ListBOMDocuments(ctx)
			if err != nil {
				return fmt.Errorf("list bom documents: %w", err)
			}
			if len(docs) == 0 {
				fmt.Println("No BOM documents found")
				return nil
			}

			fmt.Printf("%-38s %-24s %-12s %10s %6s\n", "ID", "NAME", "FRAMEWORK", "COMPONENTS", "RISK")
			for _, d := range docs {
				fmt.Printf("%-38s %-24s %-12s %10d %6.2f\n", d.ID, d.Name, d.Framework, len(d.Components), d.RiskScore)
			}
			return nil
		},
	}
}

func newBOMCreateCmd() *cobra.Command {
	var name, framework string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a BOM document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			client, ctx, cancel, err := newAPIContext(60 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			doc, err := client.CreateBOM(ctx, api.CreateBOMRequest{
				Name:      name,
				Framework: framework,
			})
			if err != nil {
				return fmt.Errorf("create bom document: %w", err)
			}

			fmt.Printf("BOM document created: %s (%s)\n", doc.Name, doc.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Document name (required)")
	cmd.Flags().StringVar(&framework, "framework", "", "BOM framework (cyclonedx, spdx)")

	return cmd
}

func newBOMExportCmd() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <bom-id>",
		Short: "Export a BOM document to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := newAPIContext(60 * time.Second)
			if err != nil {
				return err
			}
			defer cancel()

			data, err := client.ExportBOM(ctx, args[0], format)
			if err != nil {
				return fmt.Errorf("export bom document: %w", err)
			}

			if output == "" {
				output = fmt.Sprintf("bom-%s.%s", args[0], format)
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}

			fmt.Printf("Exported %d bytes to %s\n", len(data), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Export format (json, xml)")
	cmd.Flags().StringVar(&output, "output", "", "Output file path")

	return cmd
}

// recordRun appends a run to the local history store. History is best
// effort; failures never break the command that triggered the run.
func recordRun(ctx context.Context, run *history.Run) {
	logger := newLogger()
	store, err := openHistoryStore()
	if err != nil {
		logger.Debug().Err(err).Msg("history store unavailable")
		return
	}
	defer store.Close()

	if err := store.Record(ctx, run); err != nil {
		logger.Debug().Err(err).Msg("failed to record run history")
	}
}
