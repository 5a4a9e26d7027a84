// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/tracevm/tutor"
)

const (
	Name = "tracevm"

	DefaultExecuteDelay = time.Second
)

var (
	Version = "v0.1.0"

	errReadOnlyExamples = errors.New("bundled examples can't be modified")
)

// Config configures a Server. Zero durations select defaults.
type Config struct {
	TickInterval   time.Duration
	ExecuteDelay   time.Duration
	ExecuteTimeout time.Duration
	// Fixture names the trace replayed when Executor is nil.
	Fixture string

	Executor  Executor
	Scheduler Scheduler
	Assistant tutor.Assistant
}

// Server wires the playback controller to its collaborators: the executor,
// the persistence state, the websocket hub and the tutor.
type Server struct {
	log        log.Logger
	state      State
	controller *Controller
	hub        *Hub
	assistant  tutor.Assistant
	registry   *prometheus.Registry
	clock      func() time.Time

	// writeLock serializes read-modify-write sequences against [state]
	writeLock sync.Mutex
}

// New initializes a server on top of [db]
// If the database is empty or holds an older revision of the bundled
// examples, they are written before New returns.
func New(config Config, db database.Database) (*Server, error) {
	s := &Server{
		log:       log.New("module", Name),
		assistant: config.Assistant,
		registry:  prometheus.NewRegistry(),
		clock:     time.Now,
	}
	s.log.Info("Initializing trace server", "Version", Version)

	state, err := NewState(db, prometheus.WrapRegistererWithPrefix(Name+"_", s.registry))
	if err != nil {
		return nil, fmt.Errorf("couldn't create state: %w", err)
	}
	s.state = state

	if s.assistant == nil {
		s.assistant = tutor.Offline{}
	}

	executor := config.Executor
	if executor == nil {
		fixture := config.Fixture
		if fixture == "" {
			fixture = CounterFixture
		}
		delay := config.ExecuteDelay
		if delay <= 0 {
			delay = DefaultExecuteDelay
		}
		fixtureExecutor, err := NewFixtureExecutor(fixture, delay)
		if err != nil {
			return nil, err
		}
		executor = fixtureExecutor
	}

	metrics, err := NewMetrics(Name, s.registry)
	if err != nil {
		return nil, fmt.Errorf("couldn't register metrics: %w", err)
	}

	s.hub = NewHub(s.log.New("component", "hub"))
	s.controller = NewController(ControllerConfig{
		Executor:       executor,
		Scheduler:      config.Scheduler,
		Highlighter:    s.hub,
		TickInterval:   config.TickInterval,
		ExecuteTimeout: config.ExecuteTimeout,
		Logger:         s.log.New("component", "controller"),
		Metrics:        metrics,
	})
	s.controller.Subscribe(s.hub)
	s.hub.Attach(s.controller)

	seeded, err := SeedExamples(s.state, s.clock())
	if err != nil {
		s.log.Error("error while seeding examples", "err", err)
		s.hub.Close()
		return nil, err
	}
	if seeded {
		if err := s.state.Commit(); err != nil {
			s.log.Error("error while committing db", "err", err)
			s.hub.Close()
			return nil, err
		}
		s.log.Info("seeded example contracts", "owner", ExamplesOwner)
	}
	return s, nil
}

// Controller returns the playback controller.
func (s *Server) Controller() *Controller { return s.controller }

// Subscribe registers an additional view on the controller.
func (s *Server) Subscribe(view View) func() { return s.controller.Subscribe(view) }

// CreateHandlers returns a map where:
// Keys: The path extension for this server's API
// Values: The handler for the API
func (s *Server) CreateHandlers() (map[string]http.Handler, error) {
	server := rpc.NewServer()
	codec := cjson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	if err := server.RegisterService(&Service{server: s}, Name); err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"/rpc":     server,
		"/ws":      s.hub,
		"/metrics": promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
	}, nil
}

// CreateStaticHandlers returns the handlers of the stateless API
func (s *Server) CreateStaticHandlers() (map[string]http.Handler, error) {
	server := rpc.NewServer()
	codec := cjson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	return map[string]http.Handler{
		"/static": server,
	}, server.RegisterService(CreateStaticService(), Name)
}

// Shutdown stops playback, disconnects websocket clients and closes the
// database.
func (s *Server) Shutdown() error {
	s.controller.Close()
	s.hub.Close()
	return s.state.Close()
}

// recordProgress marks [lessonID] completed for [userID]. Failures are
// logged and never fail the run.
func (s *Server) recordProgress(userID, lessonID, source string) {
	if lessonID == "" {
		lessonID = DefaultLesson
	}
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	err := s.state.PutProgress(ProgressRecord{
		UserID:    userID,
		LessonID:  lessonID,
		Code:      source,
		Completed: true,
		Score:     completedScore,
		UpdatedAt: s.clock().Unix(),
	})
	if err == nil {
		err = s.state.Commit()
	}
	if err != nil {
		s.state.Abort()
		s.log.Warn("error while saving progress", "user", userID, "lesson", lessonID, "err", err)
	}
}

// recordChat appends one question and answer to the session's history.
// Failures are logged and never fail the question.
func (s *Server) recordChat(userID, sessionID, question string, answer tutor.Answer) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	now := s.clock().Unix()
	_, err := s.state.AppendChat(userID, sessionID, now,
		ChatMessage{Role: UserRole, Content: question, Timestamp: now},
		ChatMessage{Role: AssistantRole, Content: answer.Content, Topic: answer.Topic, Timestamp: now},
	)
	if err == nil {
		err = s.state.Commit()
	}
	if err != nil {
		s.state.Abort()
		s.log.Warn("error while saving chat history", "user", userID, "session", sessionID, "err", err)
	}
}

func (s *Server) saveContract(args *SaveContractArgs, reply *ContractReply) error {
	if args.Owner == ExamplesOwner {
		return errReadOnlyExamples
	}
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	now := s.clock().Unix()
	contract, err := s.state.PutContract(SavedContract{
		Owner:       args.Owner,
		Name:        args.Name,
		Code:        args.Code,
		Description: args.Description,
		Public:      args.Public,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.state.Abort()
		return err
	}
	if err := s.state.Commit(); err != nil {
		return err
	}
	reply.Contract = contract
	return nil
}

func (s *Server) deleteContract(id ids.ID) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	contract, err := s.state.GetContract(id)
	if err != nil {
		return err
	}
	if contract.Owner == ExamplesOwner {
		return errReadOnlyExamples
	}
	if err := s.state.DeleteContract(id); err != nil {
		s.state.Abort()
		return err
	}
	return s.state.Commit()
}
