package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/are-sim/aresim/apps/agentuserinterface"
	"github.com/are-sim/aresim/apps/contacts"
	"github.com/are-sim/aresim/apps/filesystem"
	"github.com/are-sim/aresim/apps/messaging"
	"github.com/are-sim/aresim/simulation/app"
	"github.com/are-sim/aresim/simulation/environment"
	"github.com/are-sim/aresim/simulation/event"
	"github.com/are-sim/aresim/simulation/scenario"
)

// fixtureFile is the YAML shape a scenario is authored in: app seed data
// plus the event DAG, with oracle judging metadata attached per event.
type fixtureFile struct {
	StartTime                      float64                  `yaml:"start_time"`
	Duration                       *float64                 `yaml:"duration"`
	TimeIncrementSeconds           float64                  `yaml:"time_increment_seconds"`
	WaitForUserInputTimeoutSeconds *float64                 `yaml:"wait_for_user_input_timeout"`
	QueueBasedLoop                 *bool                    `yaml:"queue_based_loop"`
	ToolAugmentation               *fixtureToolAugmentation `yaml:"tool_augmentation_config"`
	Apps                           fixtureApps              `yaml:"apps"`
	Events                         []fixtureEvent           `yaml:"events"`
	Hints                          []fixtureHint            `yaml:"hints"`
}

// fixtureHint is event.Hint with snake_case YAML tags.
type fixtureHint struct {
	Type    event.HintType `yaml:"type"`
	Content string         `yaml:"content"`
	EventID string         `yaml:"event_id"`
}

// queueBasedLoop defaults to the normal queue-driven tick algorithm when
// the fixture does not name the key; false selects the step-per-tick
// variant.
func (f *fixtureFile) queueBasedLoop() bool {
	if f.QueueBasedLoop == nil {
		return true
	}
	return *f.QueueBasedLoop
}

// fixtureToolAugmentation is environment.ToolAugmentationConfig with
// snake_case YAML tags matching the original's `types.py
// ToolAugmentationConfig` field names (spec §6 tool_augmentation_config).
type fixtureToolAugmentation struct {
	ToolFailureProbability           float64 `yaml:"tool_failure_probability"`
	ApplyToolNameAugmentation        bool    `yaml:"apply_tool_name_augmentation"`
	ApplyToolDescriptionAugmentation bool    `yaml:"apply_tool_description_augmentation"`
}

func (t *fixtureToolAugmentation) toConfig() *environment.ToolAugmentationConfig {
	if t == nil {
		return nil
	}
	return &environment.ToolAugmentationConfig{
		ToolFailureProbability:           t.ToolFailureProbability,
		ApplyToolNameAugmentation:        t.ApplyToolNameAugmentation,
		ApplyToolDescriptionAugmentation: t.ApplyToolDescriptionAugmentation,
	}
}

type fixtureApps struct {
	FileSystem *struct {
		Name string            `yaml:"name"`
		Seed map[string]string `yaml:"seed"`
	} `yaml:"filesystem"`
	Contacts *struct {
		Name string             `yaml:"name"`
		Seed []contacts.Contact `yaml:"seed"`
	} `yaml:"contacts"`
	Messaging *struct {
		Name string `yaml:"name"`
	} `yaml:"messaging"`
	AgentUserInterface *struct {
		Name string `yaml:"name"`
	} `yaml:"agent_user_interface"`
}

type fixtureEvent struct {
	ID             string               `yaml:"id"`
	Type           event.Type           `yaml:"type"`
	App            string               `yaml:"app"`
	Function       string               `yaml:"function"`
	Args           map[string]any       `yaml:"args"`
	Operation      event.OperationType  `yaml:"operation"`
	DependsOn      []string             `yaml:"depends_on"`
	AtTime         *float64             `yaml:"at"`
	RelativeTime   *float64             `yaml:"relative_time"`
	TimeComparator event.TimeComparator `yaml:"time_comparator"`
}

// loadFixture parses path and builds the registered apps plus the
// scenario graph described by it.
func loadFixture(path string) (*fixtureFile, *app.Registry, *scenario.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, nil, fmt.Errorf("parsing fixture: %w", err)
	}

	registry := app.NewRegistry()
	if f.Apps.FileSystem != nil {
		if err := registry.Register(filesystem.New(f.Apps.FileSystem.Name, f.Apps.FileSystem.Seed)); err != nil {
			return nil, nil, nil, err
		}
	}
	if f.Apps.Contacts != nil {
		if err := registry.Register(contacts.New(f.Apps.Contacts.Name, f.Apps.Contacts.Seed)); err != nil {
			return nil, nil, nil, err
		}
	}
	if f.Apps.Messaging != nil {
		if err := registry.Register(messaging.New(f.Apps.Messaging.Name)); err != nil {
			return nil, nil, nil, err
		}
	}
	if f.Apps.AgentUserInterface != nil {
		if err := registry.Register(agentuserinterface.New(f.Apps.AgentUserInterface.Name)); err != nil {
			return nil, nil, nil, err
		}
	}

	sc := scenario.New()
	for _, fe := range f.Events {
		_, err := sc.AddEvent(scenario.AddEventParams{
			EventID:           fe.ID,
			EventType:         fe.Type,
			AppName:           fe.App,
			FunctionName:      fe.Function,
			Args:              fe.Args,
			OperationType:     fe.Operation,
			PredecessorIDs:    fe.DependsOn,
			EventTime:         fe.AtTime,
			EventRelativeTime: fe.RelativeTime,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("event %s: %w", fe.ID, err)
		}
	}

	return &f, registry, sc, nil
}

// timeComparators indexes each event's configured comparator by id, for
// annotating the oracle run's completed events after execution.
func (f *fixtureFile) timeComparators() map[string]event.TimeComparator {
	out := make(map[string]event.TimeComparator, len(f.Events))
	for _, fe := range f.Events {
		if fe.TimeComparator != "" {
			out[fe.ID] = fe.TimeComparator
		}
	}
	return out
}
