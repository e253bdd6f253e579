package memory

import (
	"recipe-server/core"
	"recipe-server/stores/storetest"
	"testing"
)

func TestStore(t *testing.T) {
	storetest.Run(t,
		func(t *testing.T) core.CollectionStore { return NewStore() },
		func(t *testing.T, store core.CollectionStore, c core.Collection, data []byte) {
			store.(*memStore).SetRaw(c, data)
		},
	)
}
