package plugins

import "github.com/panbanda/prune/pkg/models"

var celeryDecorators = map[[2]string]models.EntrypointType{
	{"celery", "task"}:          models.EntrypointCeleryTask,
	{"app", "task"}:             models.EntrypointCeleryTask,
	{"task_success", "connect"}: models.EntrypointCelerySignal,
	{"task_failure", "connect"}: models.EntrypointCelerySignal,
	{"task_prerun", "connect"}:  models.EntrypointCelerySignal,
	{"task_postrun", "connect"}: models.EntrypointCelerySignal,
	{"worker_ready", "connect"}: models.EntrypointCelerySignal,
	{"celeryd_init", "connect"}: models.EntrypointCelerySignal,
	{"beat_init", "connect"}:    models.EntrypointCelerySignal,
}

var celeryFactories = stringSet("make_celery", "create_celery", "celery_factory")

// Celery detects tasks, shared tasks, signal handlers and app factories.
type Celery struct{}

// NewCelery creates the Celery plugin.
func NewCelery() *Celery { return &Celery{} }

func (*Celery) Name() string      { return "celery" }
func (*Celery) Framework() string { return "celery" }

func (*Celery) ImportIndicators() []string { return []string{"celery", "Celery"} }

func (*Celery) FactoryFunctions() []string {
	return []string{"make_celery", "create_celery", "celery_factory"}
}

func (*Celery) ImplicitNames() []ImplicitName { return nil }

func (*Celery) DecoratorRules() []DecoratorRule {
	return []DecoratorRule{
		{Pattern: ".task", Delta: -40, Description: "Celery task decorator"},
		{Pattern: "shared_task", Delta: -40, Description: "Celery shared_task decorator"},
		{Pattern: ".connect", Delta: -40, Description: "Celery signal handler"},
	}
}

func (*Celery) IsImplicitName(string, []string, []string) bool { return false }

func (*Celery) DetectEntrypoints(f *File) []models.DetectedEntrypoint {
	defs := Definitions(f)
	out := factoryEntrypoints(f, defs, celeryFactories)

	for _, d := range defs {
		if d.Kind != DefFunction {
			continue
		}
		for _, dec := range d.Decorators {
			ep, ok := matchCeleryDecorator(dec, f)
			if !ok {
				continue
			}
			ep.Name = d.Name
			ep.Location = d.Location(f.Path)
			ep.ParentClass = d.Class
			out = append(out, ep)
		}
	}
	return out
}

func matchCeleryDecorator(dec Decorator, f *File) (models.DetectedEntrypoint, bool) {
	var args map[string]any
	if dec.Shape == ShapeCall {
		args = ExtractArguments(dec.Args, f.Source)
	}

	if len(dec.Segments) == 1 && dec.Segments[0] == "shared_task" &&
		(dec.Shape == ShapeName || dec.Shape == ShapeCall) {
		return models.DetectedEntrypoint{
			Type:      models.EntrypointCelerySharedTask,
			Decorator: "@shared_task",
			Arguments: args,
		}, true
	}

	if len(dec.Segments) != 2 {
		return models.DetectedEntrypoint{}, false
	}
	typ, ok := celeryDecorators[[2]string{dec.Segments[0], dec.Segments[1]}]
	if !ok {
		return models.DetectedEntrypoint{}, false
	}
	return models.DetectedEntrypoint{
		Type:      typ,
		Decorator: "@" + dec.Dotted(),
		Arguments: args,
	}, true
}
