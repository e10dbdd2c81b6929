package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "EnumerateCollectionNode", KindEnumerateCollection.String())
	assert.Equal(t, "UnknownNode", Kind(999).String())
}

func TestIsModification(t *testing.T) {
	for _, k := range []Kind{KindInsert, KindRemove, KindUpdate, KindReplace} {
		assert.Truef(t, k.isModification(), "%v.isModification()", k)
	}
	for _, k := range []Kind{KindFilter, KindSort, KindReturn} {
		assert.Falsef(t, k.isModification(), "%v.isModification()", k)
	}
}

func TestIntroducesNewRows(t *testing.T) {
	for _, k := range []Kind{KindEnumerateCollection, KindEnumerateList, KindIndexRange, KindCollect} {
		assert.Truef(t, k.introducesNewRows(), "%v.introducesNewRows()", k)
	}
	for _, k := range []Kind{KindFilter, KindSort, KindReturn, KindCalculation} {
		assert.Falsef(t, k.introducesNewRows(), "%v.introducesNewRows()", k)
	}
}
