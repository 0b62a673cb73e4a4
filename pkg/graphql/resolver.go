package graphql

import (
	"errors"

	"github.com/graphql-go/graphql"
	"github.com/raywall/fixsim/pkg/dictionary"
)

var ErrNoDictionary = errors.New("dicionário FIX não carregado")

type resolvers struct {
	dict *dictionary.Dictionary
	ctl  Controller
}

func (r *resolvers) tag(p graphql.ResolveParams) (interface{}, error) {
	if r.dict == nil {
		return nil, ErrNoDictionary
	}
	number, _ := p.Args["number"].(int)
	info, ok := r.dict.Tag(number)
	if !ok {
		return nil, nil
	}
	return tagToMap(number, info), nil
}

func (r *resolvers) tags(graphql.ResolveParams) (interface{}, error) {
	if r.dict == nil {
		return nil, ErrNoDictionary
	}
	numbers := r.dict.Numbers()
	out := make([]interface{}, 0, len(numbers))
	for _, n := range numbers {
		info, _ := r.dict.Tag(n)
		out = append(out, tagToMap(n, info))
	}
	return out, nil
}

func (r *resolvers) iface(p graphql.ResolveParams) (interface{}, error) {
	if r.dict == nil {
		return nil, ErrNoDictionary
	}
	name, _ := p.Args["name"].(string)
	iface, ok := r.dict.Interface(name)
	if !ok {
		return nil, nil
	}
	return ifaceToMap(iface), nil
}

func (r *resolvers) ifaces(graphql.ResolveParams) (interface{}, error) {
	if r.dict == nil {
		return nil, ErrNoDictionary
	}
	out := make([]interface{}, 0, len(dictionary.Interfaces))
	for _, name := range dictionary.Interfaces {
		if iface, ok := r.dict.Interface(name); ok {
			out = append(out, ifaceToMap(iface))
		}
	}
	return out, nil
}

func (r *resolvers) status(graphql.ResolveParams) (interface{}, error) {
	return r.snapshot(), nil
}

func (r *resolvers) pause(p graphql.ResolveParams) (interface{}, error) {
	flag, _ := p.Args["flag"].(bool)
	r.ctl.Pause(flag)
	return r.snapshot(), nil
}

func (r *resolvers) stopStress(graphql.ResolveParams) (interface{}, error) {
	r.ctl.StopFlood()
	return r.snapshot(), nil
}

func (r *resolvers) snapshot() map[string]interface{} {
	out := map[string]interface{}{
		"paused":       r.ctl.Paused(),
		"floodRunning": r.ctl.FloodRunning(),
		"session":      nil,
	}
	if sid, ok := r.ctl.ActiveSession(); ok {
		out["session"] = sid.String()
	}
	return out
}

// --- conversões ---

func tagToMap(number int, info dictionary.TagInfo) map[string]interface{} {
	return map[string]interface{}{
		"number": number,
		"name":   info.Name,
		"type":   info.Type,
		"enums":  enumsToList(info.Enums),
	}
}

func ifaceToMap(iface *dictionary.Interface) map[string]interface{} {
	fields := iface.Fields()
	list := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		list = append(list, map[string]interface{}{
			"name":     f.Name,
			"tag":      f.Tag,
			"type":     f.Type,
			"required": f.Required == "Y",
			"enums":    enumsToList(f.Enum),
		})
	}
	return map[string]interface{}{
		"name":     iface.Name,
		"msgType":  iface.MsgType,
		"fields":   list,
		"skeleton": iface.Skeleton(),
	}
}

func enumsToList(enums []dictionary.Enum) []interface{} {
	out := make([]interface{}, 0, len(enums))
	for _, e := range enums {
		out = append(out, map[string]interface{}{"value": e.Value, "description": e.Description})
	}
	return out
}
