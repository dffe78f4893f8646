package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownModule = errors.New("unknown module")

type Kind int

const (
	Text Kind = iota
	Number
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	default:
		return "text"
	}
}

type Column struct {
	Field string
	Kind  Kind
}

// Module is a named ContaHub report with a literal query template and the ordered column
// layout of the worksheet that receives its rows.
type Module struct {
	Name    string
	query   string
	Columns []Column
}

// Query returns the module query text for the date range. The bounds are re-formatted
// from the parsed dates so only YYYY-MM-DD text is ever substituted.
func (m Module) Query(dates DateRange) (string, error) {
	if dates.IsZero() {
		return "", fmt.Errorf("%v: missing date range", m.Name)
	}

	r := strings.NewReplacer("{start_date}", dates.Start(), "{end_date}", dates.End())

	return r.Replace(m.query), nil
}

// Lookup returns the module registered under name.
func Lookup(name string) (*Module, error) {
	if m, ok := modules[strings.TrimSpace(name)]; ok {
		return &m, nil
	}

	return nil, fmt.Errorf("%w '%v'", ErrUnknownModule, name)
}

// Modules returns the sorted list of registered module names.
func Modules() []string {
	list := []string{}
	for k := range modules {
		list = append(list, k)
	}

	sort.Strings(list)

	return list
}

// The query text is an opaque contract with the ContaHub query API and is kept exactly as
// the API expects it, whitespace included.
var modules = map[string]Module{
	"analitico": {
		Name: "analitico",
		query: "\n" +
			"                SELECT v.dia_semana, v.semana, v.vd, v.vd_mesadesc, v.vd_localizacao, \n" +
			"                       v.itm, v.trn, v.trn_desc, v.prefixo, v.tipo, v.tipovenda, v.ano, v.mes,\n" +
			"                       v.vd_dtgerencial, v.usr_lancou, v.prd, v.prd_desc, v.grp_desc, v.loc_desc,\n" +
			"                       v.qtd, v.desconto, v.valorfinal, v.custo, v.itm_obs, v.comandaorigem, v.itemorigem\n" +
			"                FROM contahub_analitico v \n" +
			"                WHERE v.vd_dtgerencial BETWEEN '{start_date}' AND '{end_date}'\n" +
			"                ORDER BY v.vd_dtgerencial, v.vd, v.itm\n" +
			"            ",
		Columns: []Column{
			{"dia_semana", Text},
			{"semana", Text},
			{"vd", Text},
			{"vd_mesadesc", Text},
			{"vd_localizacao", Text},
			{"itm", Text},
			{"trn", Text},
			{"trn_desc", Text},
			{"prefixo", Text},
			{"tipo", Text},
			{"tipovenda", Text},
			{"ano", Text},
			{"mes", Text},
			{"vd_dtgerencial", Text},
			{"usr_lancou", Text},
			{"prd", Text},
			{"prd_desc", Text},
			{"grp_desc", Text},
			{"loc_desc", Text},
			{"qtd", Number},
			{"desconto", Number},
			{"valorfinal", Number},
			{"custo", Number},
			{"itm_obs", Text},
			{"comandaorigem", Text},
			{"itemorigem", Text},
		},
	},

	"periodo": {
		Name: "periodo",
		query: "\n" +
			"                SELECT v.vd, v.dia_semana, v.semana, v.trn, v.dt_gerencial, v.tipovenda,\n" +
			"                       v.vd_mesadesc, v.vd_localizacao, v.usr_abriu, v.pessoas, v.qtd_itens,\n" +
			"                       v.vr_pagamentos, v.vr_produtos, v.vr_repique, v.vr_couvert, v.vr_desconto,\n" +
			"                       v.motivo, v.dt_contabil, v.ultimo_pedido, v.vd_cpf, v.nf_autorizada,\n" +
			"                       v.nf_chaveacesso, v.nf_dtcontabil, v.vd_dtcontabil\n" +
			"                FROM contahub_periodo v \n" +
			"                WHERE v.dt_gerencial BETWEEN '{start_date}' AND '{end_date}'\n" +
			"                ORDER BY v.dt_gerencial, v.vd\n" +
			"            ",
		Columns: []Column{
			{"vd", Text},
			{"dia_semana", Text},
			{"semana", Text},
			{"trn", Text},
			{"dt_gerencial", Text},
			{"tipovenda", Text},
			{"vd_mesadesc", Text},
			{"vd_localizacao", Text},
			{"usr_abriu", Text},
			{"pessoas", Number},
			{"qtd_itens", Number},
			{"vr_pagamentos", Number},
			{"vr_produtos", Number},
			{"vr_repique", Number},
			{"vr_couvert", Number},
			{"vr_desconto", Number},
			{"motivo", Text},
			{"dt_contabil", Text},
			{"ultimo_pedido", Text},
			{"vd_cpf", Text},
			{"nf_autorizada", Text},
			{"nf_chaveacesso", Text},
			{"nf_dtcontabil", Text},
			{"vd_dtcontabil", Text},
		},
	},
}
