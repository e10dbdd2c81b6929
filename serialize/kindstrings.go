package serialize

import (
	"github.com/ariadnedb/aqlplan/ast"
	"github.com/ariadnedb/aqlplan/plan"
)

// kindFromString inverts plan.Kind.String() for deserialization.
func kindFromString(s string) (plan.Kind, bool) {
	switch s {
	case "SingletonNode":
		return plan.KindSingleton, true
	case "EnumerateCollectionNode":
		return plan.KindEnumerateCollection, true
	case "EnumerateListNode":
		return plan.KindEnumerateList, true
	case "IndexRangeNode":
		return plan.KindIndexRange, true
	case "FilterNode":
		return plan.KindFilter, true
	case "CalculationNode":
		return plan.KindCalculation, true
	case "SubqueryNode":
		return plan.KindSubquery, true
	case "SortNode":
		return plan.KindSort, true
	case "CollectNode":
		return plan.KindCollect, true
	case "LimitNode":
		return plan.KindLimit, true
	case "ReturnNode":
		return plan.KindReturn, true
	case "InsertNode":
		return plan.KindInsert, true
	case "RemoveNode":
		return plan.KindRemove, true
	case "UpdateNode":
		return plan.KindUpdate, true
	case "ReplaceNode":
		return plan.KindReplace, true
	case "ScatterNode":
		return plan.KindScatter, true
	case "DistributeNode":
		return plan.KindDistribute, true
	case "GatherNode":
		return plan.KindGather, true
	case "RemoteNode":
		return plan.KindRemote, true
	case "NoResultsNode":
		return plan.KindNoResults, true
	default:
		return 0, false
	}
}

// astKindFromString inverts ast.Kind.String() for expression
// deserialization.
func astKindFromString(s string) (ast.Kind, bool) {
	switch s {
	case "FOR":
		return ast.KindFor, true
	case "FILTER":
		return ast.KindFilter, true
	case "LET":
		return ast.KindLet, true
	case "COLLECT":
		return ast.KindCollect, true
	case "COLLECT_COUNT":
		return ast.KindCollectCount, true
	case "COLLECT_EXPRESSION":
		return ast.KindCollectExpression, true
	case "SORT":
		return ast.KindSort, true
	case "SORT_ELEMENT":
		return ast.KindSortElement, true
	case "LIMIT":
		return ast.KindLimit, true
	case "RETURN":
		return ast.KindReturn, true
	case "INSERT":
		return ast.KindInsert, true
	case "REMOVE":
		return ast.KindRemove, true
	case "UPDATE":
		return ast.KindUpdate, true
	case "REPLACE":
		return ast.KindReplace, true
	case "SUBQUERY":
		return ast.KindSubquery, true
	case "VALUE":
		return ast.KindValue, true
	case "REFERENCE":
		return ast.KindReference, true
	case "ARRAY":
		return ast.KindArray, true
	case "OBJECT":
		return ast.KindObject, true
	case "OBJECT_ELEMENT":
		return ast.KindObjectElement, true
	case "RANGE":
		return ast.KindRange, true
	case "UNARY_OP":
		return ast.KindUnaryOp, true
	case "BINARY_OP":
		return ast.KindBinaryOp, true
	case "FUNCTION_CALL":
		return ast.KindFunctionCall, true
	case "ATTRIBUTE_ACCESS":
		return ast.KindAttributeAccess, true
	case "INDEXED_ACCESS":
		return ast.KindIndexedAccess, true
	default:
		return 0, false
	}
}
