package models

// EntrypointType names a convention by which code is reached from outside.
type EntrypointType string

const (
	EntrypointFlaskRoute        EntrypointType = "flask_route"
	EntrypointFlaskBlueprint    EntrypointType = "flask_blueprint"
	EntrypointFlaskCLI          EntrypointType = "flask_cli"
	EntrypointFlaskErrorHandler EntrypointType = "flask_errorhandler"
	EntrypointFlaskHook         EntrypointType = "flask_hook"
	EntrypointCeleryTask        EntrypointType = "celery_task"
	EntrypointCelerySharedTask  EntrypointType = "celery_shared_task"
	EntrypointCelerySignal      EntrypointType = "celery_signal"
	EntrypointFastAPIRoute      EntrypointType = "fastapi_route"
	EntrypointClickCommand      EntrypointType = "click_command"
	EntrypointTyperCommand      EntrypointType = "typer_command"
	EntrypointMainBlock         EntrypointType = "main_block"
	EntrypointFactoryFunction   EntrypointType = "factory_function"
	EntrypointInfra             EntrypointType = "infra_entrypoint"
	EntrypointScript            EntrypointType = "script_entrypoint"
	EntrypointPytestTest        EntrypointType = "pytest_test"
	EntrypointPytestFixture     EntrypointType = "pytest_fixture"
)

// AllEntrypointTypes lists every known type in declaration order.
var AllEntrypointTypes = []EntrypointType{
	EntrypointFlaskRoute, EntrypointFlaskBlueprint, EntrypointFlaskCLI,
	EntrypointFlaskErrorHandler, EntrypointFlaskHook, EntrypointCeleryTask,
	EntrypointCelerySharedTask, EntrypointCelerySignal, EntrypointFastAPIRoute,
	EntrypointClickCommand, EntrypointTyperCommand, EntrypointMainBlock,
	EntrypointFactoryFunction, EntrypointInfra, EntrypointScript,
	EntrypointPytestTest, EntrypointPytestFixture,
}

// DetectedEntrypoint is an entrypoint reported by a framework detector or
// by the infrastructure scanner.
type DetectedEntrypoint struct {
	Name        string         `json:"name"`
	Type        EntrypointType `json:"type"`
	Location    Location       `json:"location"`
	Decorator   string         `json:"decorator,omitempty"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	ParentClass string         `json:"parent_class,omitempty"`
}

// EntrypointInfo is an entrypoint resolved to a symbol for reporting.
type EntrypointInfo struct {
	QualifiedName string         `json:"qualified_name"`
	Type          EntrypointType `json:"type"`
	File          string         `json:"file"`
	Line          int            `json:"line"`
	Decorator     string         `json:"decorator,omitempty"`
}
