package plugins

import (
	"strings"

	"github.com/panbanda/prune/pkg/models"
	"github.com/panbanda/prune/pkg/parser"
)

var httpMethods = []string{"get", "post", "put", "delete", "patch", "head", "options"}

var resourceBases = stringSet("Resource", "flask_restplus.Resource", "flask_restx.Resource")

// FlaskRestPlus detects Flask-RESTPlus and Flask-RESTX resources and their
// registration calls.
type FlaskRestPlus struct {
	methods map[string]bool
}

// NewFlaskRestPlus creates the Flask-RESTPlus plugin.
func NewFlaskRestPlus() *FlaskRestPlus {
	return &FlaskRestPlus{methods: stringSet(httpMethods...)}
}

func (*FlaskRestPlus) Name() string      { return "flask-restplus" }
func (*FlaskRestPlus) Framework() string { return "flask_restplus" }

func (*FlaskRestPlus) ImportIndicators() []string {
	return []string{"flask_restplus", "flask_restx", "flask_restful"}
}

func (*FlaskRestPlus) FactoryFunctions() []string { return []string{"create_api", "make_api"} }

func (*FlaskRestPlus) ImplicitNames() []ImplicitName {
	bases := []string{"Resource", "flask_restplus.Resource", "flask_restx.Resource"}
	out := make([]ImplicitName, 0, len(httpMethods))
	for _, m := range httpMethods {
		out = append(out, ImplicitName{
			Name:          m,
			Context:       "Flask-RESTPlus Resource method",
			ParentClasses: bases,
			Delta:         -40,
		})
	}
	return out
}

func (*FlaskRestPlus) DecoratorRules() []DecoratorRule {
	return []DecoratorRule{
		{Pattern: "api.expect", Delta: -20, Description: "API input expectation decorator"},
		{Pattern: "api.marshal", Delta: -20, Description: "API output marshalling decorator"},
		{Pattern: "api.doc", Delta: -10, Description: "API documentation decorator"},
		{Pattern: "ns.expect", Delta: -20, Description: "Namespace input expectation decorator"},
		{Pattern: "ns.marshal", Delta: -20, Description: "Namespace output marshalling decorator"},
	}
}

// IsImplicitName matches HTTP verb methods on anything that looks like a
// Resource subclass, including indirect bases such as BaseResource.
func (p *FlaskRestPlus) IsImplicitName(name string, parentClasses, _ []string) bool {
	if !p.methods[name] {
		return false
	}
	for _, parent := range parentClasses {
		if resourceBases[parent] || strings.HasSuffix(parent, ".Resource") {
			return true
		}
		if strings.Contains(strings.ToLower(parent), "resource") {
			return true
		}
	}
	return false
}

func (p *FlaskRestPlus) DetectEntrypoints(f *File) []models.DetectedEntrypoint {
	var out []models.DetectedEntrypoint

	resources := make(map[string]bool)
	for _, d := range Definitions(f) {
		if d.Kind == DefClass {
			for _, b := range d.Bases {
				if resourceBases[b] {
					resources[d.Name] = true
					break
				}
			}
			continue
		}
		if d.Class != "" && resources[d.Class] && p.methods[d.Name] {
			out = append(out, models.DetectedEntrypoint{
				Name:        d.Name,
				Type:        models.EntrypointFlaskRoute,
				Location:    d.Location(f.Path),
				ParentClass: d.Class,
			})
		}
	}

	for _, call := range Calls(f) {
		fn := call.ChildByFieldName("function")
		if fn == nil || fn.Type() != "attribute" {
			continue
		}
		args := call.ChildByFieldName("arguments")
		positional := PositionalArgs(args)
		switch parser.GetNodeText(fn.ChildByFieldName("attribute"), f.Source) {
		case "add_resource":
			if len(positional) < 2 || positional[0].Type() != "identifier" {
				continue
			}
			ep := models.DetectedEntrypoint{
				Name:     parser.GetNodeText(positional[0], f.Source),
				Type:     models.EntrypointFlaskRoute,
				Location: nodeLocation(call, f.Path),
			}
			if route, ok := parser.StringValue(positional[1], f.Source); ok && route != "" {
				ep.Arguments = map[string]any{"route": route}
			}
			out = append(out, ep)
		case "add_namespace":
			if len(positional) < 1 || positional[0].Type() != "identifier" {
				continue
			}
			ep := models.DetectedEntrypoint{
				Name:     parser.GetNodeText(positional[0], f.Source),
				Type:     models.EntrypointFlaskBlueprint,
				Location: nodeLocation(call, f.Path),
			}
			path, _ := parser.StringValue(KeywordArg(args, "path", f.Source), f.Source)
			if path == "" && len(positional) >= 2 {
				path, _ = parser.StringValue(positional[1], f.Source)
			}
			if path != "" {
				ep.Arguments = map[string]any{"path": path}
			}
			out = append(out, ep)
		}
	}
	return out
}
