package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"xcmcp/internal/catalog"
	"xcmcp/internal/registry"
	"xcmcp/pkg/logging"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxTokens bounds the sampling response; only a short array of
// slugs is expected back.
const DefaultMaxTokens = 200

// echoWidth bounds how much of an unparseable answer is echoed back.
const echoWidth = 300

const (
	msgNoSampling = "Dynamic tool discovery needs a client that supports sampling. " +
		"Enable workflows directly with activate_workflows, or run the server in static mode to expose every tool."
	msgEmptyTask     = "task_description must not be empty."
	msgUnusable      = "The model returned an unusable response: no text content was found."
	msgNoMatch       = "No workflows matched that task. Please provide more detail about what you want to build, test or inspect, including the platform."
	msgSamplingError = "Workflow selection request failed: %v"
	msgParseError    = "Could not read a JSON array of workflow slugs from the model response: %s"
	msgActivateError = "Failed to enable the selected workflows: %v"
	msgSuccess       = "Enabled %d tools from workflows: %s. The tool list has been updated."
)

var tracer = otel.Tracer("xcmcp/internal/discovery")

// Activator enables workflows. *registry.Registry implements it.
type Activator interface {
	Activate(ctx context.Context, slugs []string) (registry.ActivationResult, error)
}

// Discoverer selects and activates workflows from a task description.
type Discoverer struct {
	catalog   *catalog.Catalog
	activator Activator
	sampler   Sampler
	maxTokens int
}

// New creates a Discoverer. A non-positive maxTokens selects DefaultMaxTokens.
func New(cat *catalog.Catalog, activator Activator, sampler Sampler, maxTokens int) *Discoverer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Discoverer{
		catalog:   cat,
		activator: activator,
		sampler:   sampler,
		maxTokens: maxTokens,
	}
}

// Discover runs one discovery request. It never returns an error or panics;
// every failure is reported as an error Outcome.
func (d *Discoverer) Discover(ctx context.Context, task string) (outcome Outcome) {
	requestID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "discovery.Discover",
		trace.WithAttributes(attribute.String("xcmcp.discovery.request_id", requestID)))
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Discovery", fmt.Errorf("panic: %v", r), "[%s] Discovery aborted", requestID)
			outcome = errorOutcome(fmt.Sprintf("Tool discovery failed unexpectedly: %v", r))
		}
		if outcome.IsError {
			span.SetStatus(codes.Error, outcome.Message)
		}
		span.End()
	}()

	if strings.TrimSpace(task) == "" {
		return errorOutcome(msgEmptyTask)
	}

	if !d.sampler.SupportsSampling(ctx) {
		logging.Info("Discovery", "[%s] Client does not support sampling", requestID)
		return errorOutcome(msgNoSampling)
	}

	prompt := BuildPrompt(d.catalog.AllWorkflows(), task)
	logging.Debug("Discovery", "[%s] Requesting workflow selection (%d prompt bytes, max %d tokens)",
		requestID, len(prompt), d.maxTokens)

	resp, err := d.sampler.CreateMessage(ctx, prompt, d.maxTokens)
	if err != nil {
		span.RecordError(err)
		logging.Error("Discovery", err, "[%s] Sampling request failed", requestID)
		return errorOutcome(fmt.Sprintf(msgSamplingError, err))
	}

	text, ok := resp.FirstText()
	if !ok {
		logging.Warn("Discovery", "[%s] Sampling response has no text content", requestID)
		return errorOutcome(msgUnusable)
	}

	selected, err := parseSelection(text)
	if err != nil {
		logging.Warn("Discovery", "[%s] Unparseable selection: %v", requestID, err)
		return errorOutcome(fmt.Sprintf(msgParseError, echo(text)))
	}

	valid := d.filter(requestID, selected)
	span.SetAttributes(attribute.StringSlice("xcmcp.discovery.selected", valid))
	if len(valid) == 0 {
		logging.Info("Discovery", "[%s] No valid workflows selected", requestID)
		return Outcome{Message: msgNoMatch}
	}

	if _, err := d.activator.Activate(ctx, valid); err != nil {
		span.RecordError(err)
		return errorOutcome(fmt.Sprintf(msgActivateError, err))
	}

	toolCount := 0
	for _, slug := range valid {
		toolCount += len(d.catalog.ToolsOf(slug))
	}
	logging.Info("Discovery", "[%s] Selected workflows %v", requestID, valid)
	return Outcome{
		Message:   fmt.Sprintf(msgSuccess, toolCount, strings.Join(valid, ", ")),
		Activated: valid,
	}
}

// filter keeps known workflow slugs in answer order, without duplicates.
func (d *Discoverer) filter(requestID string, selected []any) []string {
	seen := make(map[string]bool, len(selected))
	var valid []string
	for _, entry := range selected {
		slug, ok := entry.(string)
		if !ok {
			logging.Warn("Discovery", "[%s] Dropping non-string selection %v", requestID, entry)
			continue
		}
		slug = strings.ToLower(strings.TrimSpace(slug))
		if !d.catalog.HasWorkflow(slug) {
			logging.Warn("Discovery", "[%s] Dropping unknown workflow %q", requestID, slug)
			continue
		}
		if seen[slug] {
			continue
		}
		seen[slug] = true
		valid = append(valid, slug)
	}
	return valid
}

// parseSelection decodes the answer, which must be a JSON array. A single
// surrounding markdown code fence is tolerated.
func parseSelection(text string) ([]any, error) {
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, "```") && strings.HasSuffix(body, "```") && len(body) >= 6 {
		body = strings.TrimSuffix(body, "```")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimPrefix(body, "json")
		body = strings.TrimSpace(body)
	}

	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	list, ok := decoded.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array, got %T", decoded)
	}
	return list, nil
}

func echo(text string) string {
	return runewidth.Truncate(strings.TrimSpace(text), echoWidth, "...")
}

func errorOutcome(msg string) Outcome {
	return Outcome{Message: msg, IsError: true}
}
