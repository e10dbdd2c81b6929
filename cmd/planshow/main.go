// Command planshow is a small demo CLI wiring the whole planning core
// together end to end: build an initial plan from a hardcoded AST,
// optimize it, register-plan the winning plan, then print either the human-readable
// explain tree or the serialized JSON document.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/builder"
	"github.com/ariadnedb/aqlplan/catalog"
	"github.com/ariadnedb/aqlplan/config"
	"github.com/ariadnedb/aqlplan/optimizer"
	"github.com/ariadnedb/aqlplan/register"
	"github.com/ariadnedb/aqlplan/serialize"
	"github.com/ariadnedb/aqlplan/variable"
)

func main() {
	jsonOut := flag.Bool("json", false, "print the serialized plan document instead of the explain tree")
	configPath := flag.String("config", "", "path to an optimizer config YAML file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			logrus.WithError(err).Fatal("reading config file")
		}
		cfg, err = config.LoadYAML(data)
		if err != nil {
			logrus.WithError(err).Fatal("parsing config file")
		}
	}

	collections := demoCollections()
	clauses := demoQuery()

	vars := variable.NewRegistry()
	initial, err := builder.Build(clauses, vars, collections)
	if err != nil {
		logrus.WithError(err).Fatal("building initial plan")
	}

	driver := optimizer.NewDriver(optimizer.DefaultRules(), cfg)
	ctx := &optimizer.Context{Collections: collections}
	result, err := driver.Optimize(ctx, initial)
	if err != nil {
		logrus.WithError(err).Fatal("optimizing plan")
	}

	if _, err := register.Assign(result.Plan, vars); err != nil {
		logrus.WithError(err).Fatal("register planning")
	}

	if *jsonOut {
		data, err := serialize.Encode(result.Plan, result.AppliedRules)
		if err != nil {
			logrus.WithError(err).Fatal("encoding plan")
		}
		var pretty map[string]any
		if err := json.Unmarshal(data, &pretty); err == nil {
			data, _ = json.MarshalIndent(pretty, "", "  ")
		}
		fmt.Println(string(data))
		return
	}

	fmt.Println(result.Plan.Explain())
	fmt.Printf("estimated cost: %.2f  estimated items: %d\n", result.EstimatedCost, result.EstimatedItems)
	fmt.Printf("applied rules: %v\n", result.AppliedRules)
}

// demoCollections builds a small in-memory catalog: a "users" collection
// with a hash index on "email", large enough that useIndexForFilter has
// something to bite on.
func demoCollections() catalog.Collections {
	emailIdx := catalog.NewIndex("idx_users_email", catalog.HASH, []string{"email"}, true, false).WithSelectivity(0.001)
	users := catalog.NewStaticCollection("users", 100000, []string{"s1"}, emailIdx)
	return catalog.NewStaticCollections(users)
}

// demoQuery builds the AST for:
//
//	FOR u IN users
//	  FILTER u.email == "demo@example.com"
//	  SORT u.name
//	  LIMIT 10
//	  RETURN u
func demoQuery() []*ast.Node {
	forU := &ast.Node{Kind: ast.KindFor, VariableName: "u", CollectionName: "users"}
	filter := &ast.Node{Kind: ast.KindFilter, Children: []*ast.Node{
		ast.NewBinaryOp("==",
			&ast.Node{Kind: ast.KindAttributeAccess, Operator: "email", Children: []*ast.Node{ast.NewReference("u")}},
			ast.NewValue("demo@example.com"),
		),
	}}
	sort := &ast.Node{Kind: ast.KindSort, Children: []*ast.Node{
		{Kind: ast.KindSortElement, Children: []*ast.Node{
			{Kind: ast.KindAttributeAccess, Operator: "name", Children: []*ast.Node{ast.NewReference("u")}},
		}},
	}}
	limit := &ast.Node{Kind: ast.KindLimit, Children: []*ast.Node{ast.NewValue(int64(10))}}
	ret := &ast.Node{Kind: ast.KindReturn, Children: []*ast.Node{ast.NewReference("u")}}
	return []*ast.Node{forU, filter, sort, limit, ret}
}
