package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/semmidev/daydump/internal/domain"
)

type fakeRunner struct {
	calls  []domain.DumpRequest
	failOn func(req domain.DumpRequest) error
}

func (f *fakeRunner) Dump(ctx context.Context, req domain.DumpRequest, w io.Writer) error {
	f.calls = append(f.calls, req)
	if f.failOn != nil {
		if err := f.failOn(req); err != nil {
			return err
		}
	}

	var sql string
	switch req.Mode {
	case domain.DumpStructure:
		sql = "CREATE TABLE `foo` (`id` int, `day` date);\n"
	case domain.DumpWhole:
		sql = fmt.Sprintf("DROP TABLE IF EXISTS `%[1]s`;\nCREATE TABLE `%[1]s` (`id` int);\nINSERT INTO `%[1]s` VALUES (1);\n", req.Table)
	case domain.DumpDaily:
		sql = fmt.Sprintf("INSERT INTO `%s` VALUES (1,'%s');\n", req.Table, req.Date)
	}
	_, err := io.WriteString(w, sql)
	return err
}

func (f *fakeRunner) callsFor(mode domain.DumpMode) []domain.DumpRequest {
	var out []domain.DumpRequest
	for _, c := range f.calls {
		if c.Mode == mode {
			out = append(out, c)
		}
	}
	return out
}

type fakeStorage struct {
	mu      sync.Mutex
	uploads []string
	files   []string
	old     []string
	oldErr  error
	listErr error
	deleted []string
}

func (s *fakeStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, remoteName)
	return nil
}

func (s *fakeStorage) List(ctx context.Context) ([]string, error) {
	return s.files, s.listErr
}

func (s *fakeStorage) Delete(ctx context.Context, remoteName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, remoteName)
	return nil
}

func (s *fakeStorage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	return s.old, s.oldErr
}

type fakeNotifier struct {
	reports []*domain.Report
}

func (n *fakeNotifier) Notify(ctx context.Context, report *domain.Report) error {
	n.reports = append(n.reports, report)
	return nil
}
