package migration

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// Runner 迁移命令的人类可读输出层。
// cmd/knowbase 的 migrate 子命令把各 Run* 入口接到对应的 Migrator 操作，
// 所有输出写入构造时注入的 Writer，便于测试。
type Runner struct {
	m   Migrator
	out io.Writer
}

// NewRunner 创建迁移运行器。out 为 nil 时输出到标准输出。
func NewRunner(m Migrator, out io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}
	return &Runner{m: m, out: out}
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// reportVersion 操作完成后的统一尾注：打印当前版本号。
func (r *Runner) reportVersion(ctx context.Context, prefix string) error {
	info, err := r.m.Info(ctx)
	if err != nil {
		return err
	}
	r.printf("%s. Current version: %d", prefix, info.CurrentVersion)
	return nil
}

// RunUp 应用全部待执行迁移。
func (r *Runner) RunUp(ctx context.Context) error {
	r.printf("Running migrations...")
	if err := r.m.Up(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return r.reportVersion(ctx, "Migrations complete")
}

// RunDown 回滚最近一次迁移。
func (r *Runner) RunDown(ctx context.Context) error {
	r.printf("Rolling back last migration...")
	if err := r.m.Down(ctx); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return r.reportVersion(ctx, "Rollback complete")
}

// RunDownAll 回滚全部迁移。
func (r *Runner) RunDownAll(ctx context.Context) error {
	r.printf("Rolling back all migrations...")
	if err := r.m.DownAll(ctx); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	r.printf("All migrations rolled back.")
	return nil
}

// RunSteps 应用（n > 0）或回滚（n < 0）n 个迁移。
func (r *Runner) RunSteps(ctx context.Context, n int) error {
	verb, count := "Applying", n
	if n < 0 {
		verb, count = "Rolling back", -n
	}
	r.printf("%s %d migration(s)...", verb, count)

	if err := r.m.Steps(ctx, n); err != nil {
		return fmt.Errorf("migration steps failed: %w", err)
	}
	return r.reportVersion(ctx, "Complete")
}

// RunVersion 打印当前版本号，处于 dirty 状态时额外标注。
func (r *Runner) RunVersion(ctx context.Context) error {
	version, dirty, err := r.m.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}

	switch {
	case version == 0:
		r.printf("No migrations applied yet.")
	case dirty:
		r.printf("Current version: %d (dirty)", version)
	default:
		r.printf("Current version: %d", version)
	}
	return nil
}

// RunStatus 以表格打印每个迁移的执行状态与汇总计数。
func (r *Runner) RunStatus(ctx context.Context) error {
	statuses, err := r.m.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if len(statuses) == 0 {
		r.printf("No migrations found.")
		return nil
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
	for _, s := range statuses {
		fmt.Fprintf(w, "%06d\t%s\t%s\n", s.Version, s.Name, statusLabel(s))
	}
	w.Flush()

	info, err := r.m.Info(ctx)
	if err != nil {
		return err
	}
	r.printf("\nTotal: %d, Applied: %d, Pending: %d",
		info.TotalMigrations, info.AppliedMigrations, info.PendingMigrations)
	return nil
}

func statusLabel(s MigrationStatus) string {
	switch {
	case s.Dirty:
		return "Dirty"
	case s.Applied:
		return "Applied"
	default:
		return "Pending"
	}
}

// RunInfo 打印迁移状态的完整快照。
func (r *Runner) RunInfo(ctx context.Context) error {
	info, err := r.m.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get info: %w", err)
	}

	r.printf("Current version:    %d", info.CurrentVersion)
	r.printf("Dirty:              %v", info.Dirty)
	r.printf("Total migrations:   %d", info.TotalMigrations)
	r.printf("Applied migrations: %d", info.AppliedMigrations)
	r.printf("Pending migrations: %d", info.PendingMigrations)
	return nil
}
