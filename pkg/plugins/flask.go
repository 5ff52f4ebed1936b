package plugins

import "github.com/panbanda/prune/pkg/models"

var flaskDecorators = map[[2]string]models.EntrypointType{
	{"app", "route"}:                   models.EntrypointFlaskRoute,
	{"bp", "route"}:                    models.EntrypointFlaskBlueprint,
	{"blueprint", "route"}:             models.EntrypointFlaskBlueprint,
	{"app", "get"}:                     models.EntrypointFlaskRoute,
	{"app", "post"}:                    models.EntrypointFlaskRoute,
	{"app", "put"}:                     models.EntrypointFlaskRoute,
	{"app", "delete"}:                  models.EntrypointFlaskRoute,
	{"app", "patch"}:                   models.EntrypointFlaskRoute,
	{"bp", "get"}:                      models.EntrypointFlaskBlueprint,
	{"bp", "post"}:                     models.EntrypointFlaskBlueprint,
	{"app", "before_request"}:          models.EntrypointFlaskHook,
	{"app", "after_request"}:           models.EntrypointFlaskHook,
	{"app", "teardown_request"}:        models.EntrypointFlaskHook,
	{"app", "before_first_request"}:    models.EntrypointFlaskHook,
	{"bp", "before_request"}:           models.EntrypointFlaskHook,
	{"bp", "after_request"}:            models.EntrypointFlaskHook,
	{"blueprint", "before_request"}:    models.EntrypointFlaskHook,
	{"blueprint", "after_request"}:     models.EntrypointFlaskHook,
	{"app", "errorhandler"}:            models.EntrypointFlaskErrorHandler,
	{"bp", "errorhandler"}:             models.EntrypointFlaskErrorHandler,
	{"app", "context_processor"}:       models.EntrypointFlaskHook,
	{"app", "shell_context_processor"}: models.EntrypointFlaskHook,
}

var flaskFactories = stringSet("create_app", "make_app", "app_factory")

// Flask detects routes, hooks, error handlers, CLI commands, app factories
// and `if __name__ == "__main__"` blocks.
type Flask struct{}

// NewFlask creates the Flask plugin.
func NewFlask() *Flask { return &Flask{} }

func (*Flask) Name() string      { return "flask" }
func (*Flask) Framework() string { return "flask" }

func (*Flask) ImportIndicators() []string { return []string{"flask", "Flask"} }

func (*Flask) FactoryFunctions() []string { return []string{"create_app", "make_app", "app_factory"} }

func (*Flask) ImplicitNames() []ImplicitName { return nil }

func (*Flask) DecoratorRules() []DecoratorRule {
	return []DecoratorRule{
		{Pattern: "route", Delta: -40, Description: "Flask route decorator"},
		{Pattern: "before_request", Delta: -40, Description: "Flask before_request hook"},
		{Pattern: "after_request", Delta: -40, Description: "Flask after_request hook"},
		{Pattern: "errorhandler", Delta: -40, Description: "Flask error handler"},
	}
}

func (*Flask) IsImplicitName(string, []string, []string) bool { return false }

func (*Flask) DetectEntrypoints(f *File) []models.DetectedEntrypoint {
	defs := Definitions(f)
	out := factoryEntrypoints(f, defs, flaskFactories)

	for _, d := range defs {
		if d.Kind != DefFunction {
			continue
		}
		for _, dec := range d.Decorators {
			if ep, ok := matchFlaskDecorator(dec, f); ok {
				ep.Name = d.Name
				ep.Location = d.Location(f.Path)
				ep.ParentClass = d.Class
				out = append(out, ep)
			}
		}
	}

	for _, block := range MainBlocks(f) {
		out = append(out, models.DetectedEntrypoint{
			Name:     MainBlockName,
			Type:     models.EntrypointMainBlock,
			Location: nodeLocation(block, f.Path),
		})
	}
	return out
}

// MainBlockName is the entrypoint name reported for a script entry block.
const MainBlockName = "__main__"

func matchFlaskDecorator(dec Decorator, f *File) (models.DetectedEntrypoint, bool) {
	if dec.Shape != ShapeCall && dec.Shape != ShapeAttribute {
		return models.DetectedEntrypoint{}, false
	}
	tail := dec.Tail(2)
	if tail == nil {
		return models.DetectedEntrypoint{}, false
	}
	var args map[string]any
	if dec.Shape == ShapeCall {
		args = ExtractArguments(dec.Args, f.Source)
	}
	if typ, ok := flaskDecorators[[2]string{tail[0], tail[1]}]; ok {
		return models.DetectedEntrypoint{
			Type:      typ,
			Decorator: "@" + dec.Dotted(),
			Arguments: args,
		}, true
	}
	if dec.Shape == ShapeCall && dec.Has("cli") && dec.Has("command") {
		return models.DetectedEntrypoint{
			Type:      models.EntrypointFlaskCLI,
			Decorator: "@" + dec.Dotted(),
			Arguments: args,
		}, true
	}
	return models.DetectedEntrypoint{}, false
}
