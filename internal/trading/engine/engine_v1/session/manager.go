// Package session manages the run folders the engine persists into.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/logger"
	"go.uber.org/zap"
)

// DateLayout names the per-day folders.
const DateLayout = "2006-01-02"

var (
	runPattern  = regexp.MustCompile(`^run_(\d+)$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Manager owns the folder layout:
//
//	{dataOutputPath}/{trading date}/run_N/
//
// The run number is fixed when the engine starts; each new trading date gets
// a folder with the same run number.
type Manager struct {
	dataOutputPath string
	runID          string
	runNumber      int
	sessionStart   time.Time
	currentDate    string
	currentRunPath string
	mu             sync.Mutex
	logger         *logger.Logger
}

// NewManager creates a Manager.
func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		dataOutputPath: "",
		runID:          "",
		runNumber:      0,
		sessionStart:   time.Time{},
		currentDate:    "",
		currentRunPath: "",
		mu:             sync.Mutex{},
		logger:         log,
	}
}

// Initialize picks the next run number for tradingDate and creates its folder.
func (s *Manager) Initialize(dataOutputPath string, tradingDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dataOutputPath = dataOutputPath
	s.sessionStart = time.Now()
	s.currentDate = tradingDate.Format(DateLayout)

	runNumber, err := s.nextRunNumber(s.currentDate)
	if err != nil {
		return fmt.Errorf("failed to determine run number: %w", err)
	}

	s.runNumber = runNumber
	s.runID = fmt.Sprintf("run_%d", runNumber)

	if err := s.createFolder(); err != nil {
		return fmt.Errorf("failed to create folder structure: %w", err)
	}

	s.logger.Info("Run folder initialized",
		zap.String("run_id", s.runID),
		zap.String("date", s.currentDate),
		zap.String("path", s.currentRunPath),
	)

	return nil
}

//nolint:funcorder // helper method used by Initialize
func (s *Manager) nextRunNumber(date string) (int, error) {
	runs, err := listRuns(filepath.Join(s.dataOutputPath, date))
	if err != nil {
		return 0, err
	}

	if len(runs) == 0 {
		return 1, nil
	}

	return runNumberOf(runs[len(runs)-1]) + 1, nil
}

//nolint:funcorder // helper method used by Initialize and HandleDateBoundary
func (s *Manager) createFolder() error {
	s.currentRunPath = filepath.Join(s.dataOutputPath, s.currentDate, s.runID)

	if err := os.MkdirAll(s.currentRunPath, 0755); err != nil {
		return fmt.Errorf("failed to create run folder: %w", err)
	}

	return nil
}

// HandleDateBoundary moves to the folder of tradingDate when it differs from
// the current one. Returns true when a new folder was created.
func (s *Manager) HandleDateBoundary(tradingDate time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newDate := tradingDate.Format(DateLayout)
	if newDate == s.currentDate {
		return false, nil
	}

	oldDate := s.currentDate
	s.currentDate = newDate

	if err := s.createFolder(); err != nil {
		return false, fmt.Errorf("failed to create folder for new date: %w", err)
	}

	s.logger.Info("Trading date rolled over",
		zap.String("old_date", oldDate),
		zap.String("new_date", newDate),
		zap.String("run_id", s.runID),
		zap.String("new_path", s.currentRunPath),
	)

	return true, nil
}

// RunPath returns the current run folder.
func (s *Manager) RunPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentRunPath
}

// RunID returns the run folder name, e.g. "run_1".
func (s *Manager) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runID
}

// SessionStart returns when Initialize ran.
func (s *Manager) SessionStart() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessionStart
}

// CurrentDate returns the current trading date as YYYY-MM-DD.
func (s *Manager) CurrentDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentDate
}

// FilePath returns the path of filename inside the current run folder.
func (s *Manager) FilePath(filename string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filepath.Join(s.currentRunPath, filename)
}

// Dates returns every trading date with a folder, ascending.
func (s *Manager) Dates() ([]string, error) {
	entries, err := os.ReadDir(s.dataOutputPath)
	if os.IsNotExist(err) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read data output directory: %w", err)
	}

	var dates []string

	for _, entry := range entries {
		if entry.IsDir() && datePattern.MatchString(entry.Name()) {
			dates = append(dates, entry.Name())
		}
	}

	sort.Strings(dates)

	return dates, nil
}

// Runs returns the run folders of date, ordered by run number.
func (s *Manager) Runs(date string) ([]string, error) {
	return listRuns(filepath.Join(s.dataOutputPath, date))
}

// PreviousRunPath returns the newest run folder other than the current one
// that holds at least one file, or "" when there is none. The engine
// restores its ledger from it.
func (s *Manager) PreviousRunPath() (string, error) {
	current := s.RunPath()

	dates, err := s.Dates()
	if err != nil {
		return "", err
	}

	for i := len(dates) - 1; i >= 0; i-- {
		runs, err := s.Runs(dates[i])
		if err != nil {
			return "", err
		}

		for j := len(runs) - 1; j >= 0; j-- {
			path := filepath.Join(s.dataOutputPath, dates[i], runs[j])
			if path == current {
				continue
			}

			if hasFiles(path) {
				return path, nil
			}
		}
	}

	return "", nil
}

func listRuns(datePath string) ([]string, error) {
	entries, err := os.ReadDir(datePath)
	if os.IsNotExist(err) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read date directory: %w", err)
	}

	var runs []string

	for _, entry := range entries {
		if entry.IsDir() && runPattern.MatchString(entry.Name()) {
			runs = append(runs, entry.Name())
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runNumberOf(runs[i]) < runNumberOf(runs[j])
	})

	return runs, nil
}

func runNumberOf(run string) int {
	matches := runPattern.FindStringSubmatch(run)
	if len(matches) != 2 {
		return 0
	}

	n, _ := strconv.Atoi(matches[1])

	return n
}

func hasFiles(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}

	for _, e := range entries {
		if !e.IsDir() {
			return true
		}
	}

	return false
}
