package database

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/semmidev/daydump/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
}

// MySQLDump runs the mysqldump binary against the local server.
type MySQLDump struct {
	binary   string
	database string
	user     string
	password string
	verbose  bool
	logger   Logger
}

func NewMySQLDump(binary, database, user, password string, verbose bool, logger Logger) *MySQLDump {
	if binary == "" {
		binary = "mysqldump"
	}
	return &MySQLDump{
		binary:   binary,
		database: database,
		user:     user,
		password: password,
		verbose:  verbose,
		logger:   logger,
	}
}

// Args builds the mysqldump argument vector for req. The flags decide what
// ends up in the archive, so they must stay exactly as they are:
//
//	structure: --no-data <db>
//	whole:     <db> <table>
//	daily:     --no-create-info --skip-add-drop-table --where=<field>='<day>' <db> <table>
func (m *MySQLDump) Args(req domain.DumpRequest) ([]string, error) {
	args := []string{fmt.Sprintf("--user=%s", m.user)}
	if m.password != "" {
		args = append(args, fmt.Sprintf("--password=%s", m.password))
	}

	switch req.Mode {
	case domain.DumpStructure:
		return append(args, "--no-data", m.database), nil

	case domain.DumpWhole:
		if req.Table == "" {
			return nil, domain.ErrEmptyTableName
		}
		return append(args, m.database, req.Table), nil

	case domain.DumpDaily:
		if req.Table == "" {
			return nil, domain.ErrEmptyTableName
		}
		if req.DateField == "" || req.Date.IsZero() {
			return nil, fmt.Errorf("daily dump of %s needs a date field and a date", req.Table)
		}
		return append(args,
			"--no-create-info",
			"--skip-add-drop-table",
			fmt.Sprintf("--where=%s='%s'", req.DateField, req.Date),
			m.database,
			req.Table,
		), nil

	default:
		return nil, fmt.Errorf("unknown dump mode %d", req.Mode)
	}
}

// Dump streams mysqldump's standard output into w.
func (m *MySQLDump) Dump(ctx context.Context, req domain.DumpRequest, w io.Writer) error {
	args, err := m.Args(req)
	if err != nil {
		return err
	}

	if m.verbose && m.logger != nil {
		m.logger.Infof("Running: %s %s", m.binary, strings.Join(maskPassword(args), " "))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.binary, args...)
	cmd.Stdout = w
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mysqldump failed: %w, output: %s", err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

func maskPassword(args []string) []string {
	masked := make([]string, len(args))
	for i, a := range args {
		if strings.HasPrefix(a, "--password=") {
			a = "--password=***"
		}
		masked[i] = a
	}
	return masked
}
