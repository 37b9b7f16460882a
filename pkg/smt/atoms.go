package smt

import (
	"maps"

	"github.com/samber/lo"
)

// NonUnitAtoms lists the atoms worth asking the solver about: nullary Bool
// constants that some assertion mentions outside of a unit literal. An atom is
// left out only when every assertion mentioning it asserts it, or its
// negation, as a unit. Names are returned in declaration order and in their
// declared spelling, ready to be written back into a solver command.
func (formula Formula) NonUnitAtoms() ([]string, error) {
	commands, err := Parse(formula.text)
	if err != nil {
		return nil, err
	}

	scan := newAtomScan()
	for _, command := range commands {
		arguments := command.Children
		switch command.Head() {
		case "declare-const":
			if len(arguments) == 3 && isBoolSort(arguments[2]) {
				scan.declare(arguments[1])
			}
		case "declare-fun":
			if len(arguments) == 4 && arguments[2].IsList() && len(arguments[2].Children) == 0 && isBoolSort(arguments[3]) {
				scan.declare(arguments[1])
			}
		case "define-fun":
			if len(arguments) == 5 && arguments[2].IsList() {
				scan.define(arguments[1].Name(), arguments[2], arguments[4])
			}
		case "assert":
			if len(arguments) == 2 {
				scan.collectAsserted(arguments[1], scan.occurrences)
			}
		}
	}

	return lo.FilterMap(scan.declared, func(symbol Node, _ int) (string, bool) {
		return symbol.Text, scan.occurrences[symbol.Name()]
	}), nil
}

// definition summarizes a define-fun body in terms of declared atoms, so that
// uses of the defined name never need to re-walk the body.
type definition struct {
	occurrences []string
	asserted    []string // Only for nullary definitions
}

type atomScan struct {
	declared    []Node
	atoms       map[string]bool
	definitions map[string]definition
	occurrences map[string]bool // Atoms mentioned outside a unit literal
}

func newAtomScan() *atomScan {
	return &atomScan{
		declared:    make([]Node, 0),
		atoms:       make(map[string]bool),
		definitions: make(map[string]definition),
		occurrences: make(map[string]bool),
	}
}

func (scan *atomScan) declare(symbol Node) {
	name := symbol.Name()
	if scan.atoms[name] {
		return
	}
	scan.atoms[name] = true
	scan.declared = append(scan.declared, symbol)
}

func (scan *atomScan) define(name string, parameters, body Node) {
	bound := lo.SliceToMap(sortedVariables(parameters), func(parameter string) (string, bool) {
		return parameter, true
	})

	occurrences := make(map[string]bool)
	scan.collectOccurrences(body, bound, occurrences)

	asserted := make(map[string]bool)
	if len(parameters.Children) == 0 {
		scan.collectAsserted(body, asserted)
	}

	scan.definitions[name] = definition{
		occurrences: lo.Keys(occurrences),
		asserted:    lo.Keys(asserted),
	}
}

// collectAsserted records the atoms an assertion of term mentions outside of
// a unit literal. A literal on its own, or among the conjuncts of a top-level
// and, is a unit and adds nothing.
func (scan *atomScan) collectAsserted(term Node, into map[string]bool) {
	switch {
	case term.Kind == Symbol:
		if definition, ok := scan.definitions[term.Name()]; ok && !scan.atoms[term.Name()] {
			for _, atom := range definition.asserted {
				into[atom] = true
			}
		}
	case term.Head() == "not" && len(term.Children) == 2 && term.Children[1].Kind == Symbol && scan.atoms[term.Children[1].Name()]:
		// Negative unit
	case term.Head() == "and":
		for _, conjunct := range term.Children[1:] {
			scan.collectAsserted(conjunct, into)
		}
	case term.Head() == "!" && len(term.Children) >= 2:
		scan.collectAsserted(term.Children[1], into)
	default:
		scan.collectOccurrences(term, map[string]bool{}, into)
	}
}

// collectOccurrences records every free mention of a declared atom in term.
// Names in bound are shadowed by an enclosing binder.
func (scan *atomScan) collectOccurrences(term Node, bound map[string]bool, into map[string]bool) {
	if term.Kind == Symbol {
		name := term.Name()
		if bound[name] {
			return
		}
		if scan.atoms[name] {
			into[name] = true
		} else if definition, ok := scan.definitions[name]; ok {
			for _, atom := range definition.occurrences {
				into[atom] = true
			}
		}
		return
	} else if term.Kind != List {
		return
	}

	switch term.Head() {
	case "let":
		if len(term.Children) == 3 && term.Children[1].IsList() {
			inner := maps.Clone(bound)
			for _, binding := range term.Children[1].Children {
				if binding.IsList() && len(binding.Children) == 2 {
					scan.collectOccurrences(binding.Children[1], bound, into) // Bound terms live in the outer scope
					inner[binding.Children[0].Name()] = true
				}
			}
			scan.collectOccurrences(term.Children[2], inner, into)
			return
		}
	case "forall", "exists":
		if len(term.Children) == 3 && term.Children[1].IsList() {
			inner := maps.Clone(bound)
			for _, variable := range sortedVariables(term.Children[1]) {
				inner[variable] = true
			}
			scan.collectOccurrences(term.Children[2], inner, into)
			return
		}
	case "!":
		if len(term.Children) >= 2 {
			scan.collectOccurrences(term.Children[1], bound, into) // Attributes carry no atoms
			return
		}
	}

	for _, child := range term.Children {
		scan.collectOccurrences(child, bound, into)
	}
}

// sortedVariables returns the names of a ((name Sort) ...) list.
func sortedVariables(list Node) []string {
	return lo.FilterMap(list.Children, func(variable Node, _ int) (string, bool) {
		if !variable.IsList() || len(variable.Children) == 0 {
			return "", false
		}
		return variable.Children[0].Name(), true
	})
}

func isBoolSort(sort Node) bool {
	return sort.Kind == Symbol && sort.Name() == "Bool"
}
