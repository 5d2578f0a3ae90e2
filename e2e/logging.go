//go:build e2e

package e2e

import (
	"regexp"
	"strings"
	"sync"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func StripAnsi(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

type LogSource string

const (
	SourceStdout LogSource = "stdout" // terminal replies
	SourceStderr LogSource = "stderr" // structured logs
)

type LogSubscription struct {
	Node    string
	Source  LogSource
	Pattern string
	Regex   *regexp.Regexp
	From    int
	MatchCh chan struct{}
}

func (s *LogSubscription) matches(content string) bool {
	if s.From > len(content) {
		return false
	}
	content = content[s.From:]
	if s.Regex != nil {
		return s.Regex.MatchString(content)
	}
	return strings.Contains(content, s.Pattern)
}

// LogManager keeps the output of every router process and wakes subscribers
// whose pattern shows up.
type LogManager struct {
	mu          sync.RWMutex
	subscribers []*LogSubscription
	// history lets a subscription match output that arrived before it was made
	history   map[string]map[LogSource]*strings.Builder
	historyMu sync.RWMutex
}

func NewLogManager() *LogManager {
	return &LogManager{
		subscribers: make([]*LogSubscription, 0),
		history:     make(map[string]map[LogSource]*strings.Builder),
	}
}

func (m *LogManager) Accept(node string, source LogSource, content string) {
	m.historyMu.Lock()
	if _, ok := m.history[node]; !ok {
		m.history[node] = make(map[LogSource]*strings.Builder)
	}
	if _, ok := m.history[node][source]; !ok {
		m.history[node][source] = &strings.Builder{}
	}
	m.history[node][source].WriteString(content)
	fullContent := m.history[node][source].String()
	m.historyMu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		if sub.Node != node || sub.Source != source {
			continue
		}
		if sub.matches(fullContent) {
			select {
			case sub.MatchCh <- struct{}{}:
			default:
			}
		}
	}
}

// Subscribe waits for pattern in the output of node, skipping the first from bytes.
func (m *LogManager) Subscribe(node string, source LogSource, pattern string, isRegex bool, from int) (*LogSubscription, error) {
	sub := &LogSubscription{
		Node:    node,
		Source:  source,
		From:    from,
		MatchCh: make(chan struct{}, 1),
	}
	if isRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		sub.Regex = re
	} else {
		sub.Pattern = pattern
	}

	m.mu.Lock()
	m.subscribers = append(m.subscribers, sub)
	m.mu.Unlock()

	// check history immediately
	if sub.matches(m.History(node, source)) {
		select {
		case sub.MatchCh <- struct{}{}:
		default:
		}
	}
	return sub, nil
}

func (m *LogManager) Unsubscribe(sub *LogSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subscribers {
		if s == sub {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			break
		}
	}
}

func (m *LogManager) History(node string, source LogSource) string {
	m.historyMu.RLock()
	defer m.historyMu.RUnlock()
	if h, ok := m.history[node]; ok {
		if b, ok := h[source]; ok {
			return b.String()
		}
	}
	return ""
}

type managerWriter struct {
	node    string
	source  LogSource
	manager *LogManager
}

func (w *managerWriter) Write(p []byte) (n int, err error) {
	w.manager.Accept(w.node, w.source, StripAnsi(string(p)))
	return len(p), nil
}
