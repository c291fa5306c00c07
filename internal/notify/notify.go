package notify

import (
	"fmt"
	"os"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// Notification is one desktop notification payload, produced by the due
// scan and delivered only after the store is saved and unlocked.
type Notification struct {
	Title string
	Body  string
}

// Desktop sends notifications to the desktop environment. Delivery
// failure is reported to the caller, who treats it as non-fatal.
type Desktop struct{}

func (Desktop) Send(n Notification) error {
	return beeep.Notify(n.Title, n.Body, "")
}

// Alarm plays a local mp3 file once, blocking until playback ends.
type Alarm struct {
	Path string
}

func (a Alarm) Play() error {
	f, err := os.Open(a.Path)
	if err != nil {
		return fmt.Errorf("open alarm file %s: %w", a.Path, err)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode alarm file %s: %w", a.Path, err)
	}
	defer streamer.Close()
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() { close(done) })))
	<-done
	return nil
}
