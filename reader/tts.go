package reader

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"go.uber.org/zap"
)

// TTS streams the text being read to an external speech command, one
// sentence per line on its stdin. Sentence boundaries come from the punkt
// tokenizer so abbreviations do not chop the speech mid-phrase.
type TTS struct {
	command string
	log     *zap.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stop    chan struct{}
	running bool

	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewTTS(command string, log *zap.Logger) *TTS {
	t := &TTS{command: command, log: log}
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		log.Warn("loading sentence tokenizer", zap.Error(err))
		return t
	}
	t.tokenizer = tok
	return t
}

// Sentences splits text into sentences, falling back to the whole text
// when no tokenizer model loaded.
func (t *TTS) Sentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if t.tokenizer == nil {
		return []string{text}
	}
	var out []string
	for _, s := range t.tokenizer.Tokenize(text) {
		if trimmed := strings.TrimSpace(s.Text); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Start begins speaking the given paragraphs. Any speech in progress is
// stopped first.
func (t *TTS) Start(paragraphs []string) error {
	if t.command == "" {
		return fmt.Errorf("no tts command configured")
	}
	t.Stop()

	cmd := exec.Command(t.command)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("tts stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", t.command, err)
	}

	stop := make(chan struct{})
	t.mu.Lock()
	t.cmd, t.stdin, t.stop, t.running = cmd, stdin, stop, true
	t.mu.Unlock()

	go func() {
		defer stdin.Close()
		for _, para := range paragraphs {
			for _, sentence := range t.Sentences(para) {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := io.WriteString(stdin, sentence+"\n"); err != nil {
					t.log.Warn("writing to tts command", zap.Error(err))
					return
				}
			}
		}
	}()
	go func() {
		cmd.Wait()
		t.mu.Lock()
		if t.cmd == cmd {
			t.running = false
		}
		t.mu.Unlock()
	}()
	return nil
}

// Stop kills the speech command if one is running.
func (t *TTS) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	close(t.stop)
	t.stdin.Close()
	if t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}
	t.running = false
}

func (t *TTS) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// toggleTTS starts speaking from the current chapter, or stops if already
// speaking.
func (r *Reader) toggleTTS() error {
	if r.tts.Running() {
		r.tts.Stop()
		r.status = "tts stopped"
		return nil
	}
	doc, err := r.document(r.chapter)
	if err != nil {
		return err
	}
	if err := r.tts.Start(doc.Paragraphs()); err != nil {
		return err
	}
	r.status = "tts started"
	return nil
}
