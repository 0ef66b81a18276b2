package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/theprismdata/llm-sql-maker/internal/dbexec"
	"github.com/theprismdata/llm-sql-maker/internal/graph"
	"github.com/theprismdata/llm-sql-maker/internal/llm"
	"github.com/theprismdata/llm-sql-maker/internal/logging"
	"github.com/theprismdata/llm-sql-maker/internal/planner"
	"github.com/theprismdata/llm-sql-maker/internal/sqlgen"
)

const welcomeBanner = `llm-sql-maker - ask questions about your database in plain language.
Type a question, or /help for commands. 'exit' or Ctrl-D to leave.`

// Run starts the interactive question loop and blocks until the user exits or
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	fmt.Println(welcomeBanner)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "ask> ",
		HistoryFile:       historyFilePath(),
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer func() {
		_ = rl.Close()
	}()

	// Unblock Readline when the surrounding context ends.
	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				fmt.Println("bye")
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("bye")
			return nil
		}
		if strings.HasPrefix(input, "/") {
			if err := a.handleCommand(ctx, input); err != nil {
				fmt.Printf("error: %v\n", err)
			}
			continue
		}

		if err := a.answerQuestion(ctx, input); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".llm-sql-maker_history")
}

func (a *App) handleCommand(ctx context.Context, input string) error {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/help":
		fmt.Println(`commands:
  /tables              list tables of the connected database
  /relations           list inferred relationships
  /plan <t1> <t2> ...  show the join plan for the given tables
  /refresh             re-extract the schema and rebuild the graph
  exit                 leave`)
		return nil
	case "/tables":
		for _, name := range a.snapshot.TableNames() {
			table := a.snapshot.Table(name)
			line := "  " + name
			if table.Comment != "" {
				line += "  (" + table.Comment + ")"
			}
			if j, ok := a.junctions[name]; ok {
				line += "  [" + j.Describe() + "]"
			}
			fmt.Println(line)
		}
		return nil
	case "/relations":
		for _, rel := range a.relationships {
			fmt.Printf("  %s\n", rel.String())
		}
		return nil
	case "/plan":
		if len(fields) < 2 {
			return fmt.Errorf("usage: /plan <table> [table ...]")
		}
		plan, err := a.planner.Plan(ctx, fields[1:])
		if err != nil {
			return err
		}
		printPlan(plan)
		return nil
	case "/refresh":
		if err := a.Refresh(ctx); err != nil {
			return err
		}
		fmt.Println("schema refreshed")
		return nil
	default:
		return fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
}

// answerQuestion runs the full pipeline for one natural-language question:
// table selection, neighborhood expansion, join planning, SQL generation,
// and optional execution.
func (a *App) answerQuestion(ctx context.Context, question string) error {
	questionID := uuid.NewString()
	logger := a.logger.WithQuestionID(questionID)
	ctx = logging.WithQuestionIDContext(ctx, questionID)

	selection, err := a.selector.SelectTables(ctx, a.snapshot, question)
	if err != nil {
		return fmt.Errorf("table selection failed: %w", err)
	}
	if len(selection.Tables) == 0 {
		fmt.Println("could not relate the question to any table; try /tables to see what exists")
		return nil
	}
	if selection.Fallback {
		logger.Info("selected tables via keyword fallback")
	}
	fmt.Printf("tables: %s\n", strings.Join(selection.Tables, ", "))

	tables, err := a.expandSelection(ctx, selection)
	if err != nil {
		return err
	}

	plan, err := a.planner.Plan(ctx, tables)
	if err != nil {
		if errors.Is(err, graph.ErrBackendUnavailable) {
			return fmt.Errorf("graph backend unavailable, try again: %w", err)
		}
		return fmt.Errorf("join planning failed: %w", err)
	}
	printPlan(plan)

	skeleton, err := sqlgen.BuildSkeleton(plan)
	if err == nil && len(skeleton.CrossJoined) > 0 {
		fmt.Printf("warning: no known join for %s, a cross join may multiply rows\n",
			strings.Join(skeleton.CrossJoined, ", "))
	}

	if !a.llmClient.Configured() {
		if err != nil {
			return fmt.Errorf("no llm configured and skeleton generation failed: %w", err)
		}
		fmt.Println("no llm configured; join skeleton only:")
		fmt.Println(skeleton.SQL)
		return nil
	}

	prompt := sqlgen.RenderQueryPrompt(a.snapshot, a.junctions, plan, question)
	raw, err := a.llmClient.GenerateSQL(ctx, prompt)
	if err != nil {
		return err
	}
	query, err := sqlgen.ExtractSQL(raw)
	if err != nil {
		return fmt.Errorf("model response unusable: %w", err)
	}

	fmt.Println(query)
	if !a.cfg.Execution.Enabled {
		return nil
	}

	result, err := dbexec.FetchAll(ctx, a.executor, query, a.cfg.Execution.MaxRows)
	if err != nil {
		return fmt.Errorf("query execution failed: %w", err)
	}
	printResult(result)
	return nil
}

// expandSelection adds graph neighbors of the selected tables so the plan can
// route through tables the question didn't name. Only fallback selections are
// expanded; an explicit model selection is trusted as-is.
func (a *App) expandSelection(ctx context.Context, selection llm.Selection) ([]string, error) {
	if !selection.Fallback || len(selection.Tables) >= 2 {
		return selection.Tables, nil
	}

	neighbors, err := a.store.NeighborsWithin(ctx, selection.Tables, graph.NeighborOptions{
		MaxHops:         1,
		StructuralLimit: a.cfg.Graph.NeighborStructuralLimit,
		SemanticLimit:   a.cfg.Graph.NeighborSemanticLimit,
	})
	if err != nil {
		if errors.Is(err, graph.ErrQueryTimeout) {
			return selection.Tables, nil
		}
		return nil, fmt.Errorf("neighborhood expansion failed: %w", err)
	}
	return append(selection.Tables, neighbors...), nil
}

func printPlan(plan []planner.JoinStep) {
	for i, step := range plan {
		switch {
		case i == 0:
			fmt.Printf("plan: %s", step.Table)
		case step.Connected():
			fmt.Printf(" -> %s", step.Table)
		default:
			fmt.Printf(" + %s (unconnected)", step.Table)
		}
	}
	fmt.Println()
}

func printResult(result *dbexec.ResultSet) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
	if result.Truncated {
		fmt.Printf("(%d rows shown, result truncated)\n", len(result.Rows))
	} else {
		fmt.Printf("(%d rows)\n", len(result.Rows))
	}
}
