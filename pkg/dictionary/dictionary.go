package dictionary

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/quickfixgo/quickfix/datadictionary"
)

// Interfaces são os tipos de mensagem expostos pela superfície de controle.
var Interfaces = []string{
	"NewOrderSingle",
	"OrderCancelReplaceRequest",
	"OrderCancelRequest",
	"ExecutionReport",
	"OrderCancelReject",
	"BusinessMessageReject",
	"TradingSessionStatus",
}

type Enum struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

// TagInfo é a entrada do tag_list.
type TagInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Enums []Enum `json:"-"`
}

// FieldInfo descreve um campo (ou grupo) de primeiro nível de uma mensagem.
type FieldInfo struct {
	Tag      int    `json:"tag"`
	Type     string `json:"type"`
	Required string `json:"required"` // Y ou N
	Enum     []Enum `json:"enum,omitempty"`
}

// Interface é a listagem de campos de um tipo de mensagem.
type Interface struct {
	MsgType string               `json:"MsgType"`
	Name    string               `json:"Name"`
	Field   map[string]FieldInfo `json:"Field"`

	order []string // ordem de declaração no dicionário
}

// Dictionary é a visão somente leitura do dicionário FIX usada pelo controle.
type Dictionary struct {
	Version    string
	tags       map[int]TagInfo
	interfaces map[string]*Interface
}

// Load lê o dicionário XML do quickfix (o mesmo referenciado por DataDictionary no .ini).
func Load(path string) (*Dictionary, error) {
	dd, err := datadictionary.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler dicionário %s: %w", path, err)
	}
	return New(dd), nil
}

// LoadFrom é o Load a partir de um reader.
func LoadFrom(r io.Reader) (*Dictionary, error) {
	dd, err := datadictionary.ParseSrc(r)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler dicionário: %w", err)
	}
	return New(dd), nil
}

func New(dd *datadictionary.DataDictionary) *Dictionary {
	d := &Dictionary{
		Version:    fmt.Sprintf("%s.%d.%d", dd.FIXType, dd.Major, dd.Minor),
		tags:       make(map[int]TagInfo, len(dd.FieldTypeByTag)),
		interfaces: make(map[string]*Interface),
	}

	for tag, ft := range dd.FieldTypeByTag {
		d.tags[tag] = TagInfo{Name: ft.Name(), Type: ft.Type, Enums: enums(ft)}
	}

	wanted := make(map[string]bool, len(Interfaces))
	for _, name := range Interfaces {
		wanted[name] = true
	}
	for _, msg := range dd.Messages {
		if !wanted[msg.Name] {
			continue
		}
		d.interfaces[msg.Name] = newInterface(msg)
	}
	return d
}

// newInterface lista campos e grupos de primeiro nível; componentes não são expandidos.
func newInterface(msg *datadictionary.MessageDef) *Interface {
	iface := &Interface{
		MsgType: msg.MsgType,
		Name:    msg.Name,
		Field:   make(map[string]FieldInfo),
	}
	for _, part := range msg.Parts {
		fd, ok := part.(*datadictionary.FieldDef)
		if !ok {
			continue
		}
		required := "N"
		if fd.Required() {
			required = "Y"
		}
		iface.Field[fd.Name()] = FieldInfo{
			Tag:      fd.Tag(),
			Type:     fd.Type,
			Required: required,
			Enum:     enums(fd.FieldType),
		}
		iface.order = append(iface.order, fd.Name())
	}
	return iface
}

func enums(ft *datadictionary.FieldType) []Enum {
	if ft == nil || len(ft.Enums) == 0 {
		return nil
	}
	out := make([]Enum, 0, len(ft.Enums))
	for _, e := range ft.Enums {
		out = append(out, Enum{Value: e.Value, Description: e.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// TagList indexa as tags pelo número em texto, como no endpoint /tag_list.
func (d *Dictionary) TagList() map[string]TagInfo {
	out := make(map[string]TagInfo, len(d.tags))
	for tag, info := range d.tags {
		out[strconv.Itoa(tag)] = info
	}
	return out
}

// Numbers retorna as tags conhecidas em ordem crescente.
func (d *Dictionary) Numbers() []int {
	out := make([]int, 0, len(d.tags))
	for tag := range d.tags {
		out = append(out, tag)
	}
	sort.Ints(out)
	return out
}

func (d *Dictionary) Tag(tag int) (TagInfo, bool) {
	info, ok := d.tags[tag]
	return info, ok
}

// Interface retorna a listagem de um tipo de mensagem presente no dicionário.
func (d *Dictionary) Interface(name string) (*Interface, bool) {
	iface, ok := d.interfaces[name]
	return iface, ok
}

// NamedField é um FieldInfo acompanhado do nome.
type NamedField struct {
	Name string
	FieldInfo
}

// Fields retorna os campos com os obrigatórios primeiro, mantendo a ordem de declaração.
func (i *Interface) Fields() []NamedField {
	out := make([]NamedField, 0, len(i.order))
	for _, name := range i.order {
		out = append(out, NamedField{Name: name, FieldInfo: i.Field[name]})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Required == "Y" && out[b].Required != "Y"
	})
	return out
}

// Skeleton gera o esqueleto YAML de reply para o tipo de mensagem, um campo por linha:
//
//	11: "" # ClOrdID, required(Y), type(STRING)
func (i *Interface) Skeleton() string {
	var sb strings.Builder
	for _, f := range i.Fields() {
		fmt.Fprintf(&sb, "%d: \"\" # %s, required(%s), type(%s)\n", f.Tag, f.Name, f.Required, f.Type)
	}
	return sb.String()
}
