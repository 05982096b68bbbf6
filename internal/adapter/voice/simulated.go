package voice

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

type simulatedOutcome struct {
	status   entity.CallStatus
	outcome  string
	duration int
}

var simulatedOutcomes = []simulatedOutcome{
	{entity.CallStatusCompleted, "interested", 180},
	{entity.CallStatusCompleted, "not_interested", 45},
	{entity.CallStatusNoAnswer, "no_answer", 0},
	{entity.CallStatusVoicemail, "voicemail", 30},
}

// Simulated resolves calls instantly with a random outcome. It is used when
// no real provider is configured.
type Simulated struct {
	mu   sync.Mutex
	intn func(n int) int
}

func NewSimulated() *Simulated {
	r := rand.New(rand.NewSource(rand.Int63()))
	return &Simulated{intn: r.Intn}
}

// NewSimulatedWithPicker fixes the outcome selection.
func NewSimulatedWithPicker(intn func(n int) int) *Simulated {
	return &Simulated{intn: intn}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) StartCall(_ context.Context, req repository.CallRequest) (*repository.ProviderCall, error) {
	s.mu.Lock()
	o := simulatedOutcomes[s.intn(len(simulatedOutcomes))]
	s.mu.Unlock()

	call := &repository.ProviderCall{
		CallID:          "sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Status:          o.status,
		Outcome:         o.outcome,
		DurationSeconds: o.duration,
	}
	if o.status == entity.CallStatusCompleted {
		call.Transcript = sampleTranscript(req)
	}
	return call, nil
}

func sampleTranscript(req repository.CallRequest) string {
	return fmt.Sprintf("CALLER: Hello, this is an automated call from ScrapeX regarding %s.\n\n"+
		"CALLER: %s\n\n"+
		"RECIPIENT: [Response recorded]\n\n"+
		"CALLER: Thank you for your time. Have a great day!\n", req.FacilityName, req.Script)
}
