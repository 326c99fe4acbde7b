package wrapper

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viant/cwrapfinder/catalog"
	"github.com/viant/cwrapfinder/cparse"
	"github.com/viant/cwrapfinder/passthrough"
)

func testCatalog(targets ...string) catalog.ApiCatalog {
	set := map[string]bool{}
	for _, t := range targets {
		set[t] = true
	}
	return catalog.ApiCatalog{TargetNames: set}
}

func TestScenario1_SimpleWrapper(t *testing.T) {
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(`int w(int fd){ return close(fd); }`))
	require.NoError(t, err)
	defer unit.Close()

	a := New(unit, testCatalog("close"))
	def := unit.FunctionDefinitions()[0]
	d := a.StrictPlus(def, PolicyDefault)
	require.True(t, d.Keep)
	require.Equal(t, "close", d.ApiName)
	require.True(t, d.PerPathSingle)
	require.False(t, d.ViaHelperHop)
}

func TestScenario2_EarlyGuard(t *testing.T) {
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(`int w(int fd){ if(fd<0) return -1; return close(fd); }`))
	require.NoError(t, err)
	defer unit.Close()

	a := New(unit, testCatalog("close"))
	def := unit.FunctionDefinitions()[0]
	d := a.StrictPlus(def, PolicyDefault)
	require.True(t, d.Keep)
	require.Contains(t, d.Reason, "ok-guard")
}

func TestScenario3_BenignHelperIgnored(t *testing.T) {
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(`int w(int fd){ int r=close(fd); log(r); return r; }`))
	require.NoError(t, err)
	defer unit.Close()

	cat := testCatalog("close")
	cat.Helpers.Benign = map[string]bool{"log": true}
	a := New(unit, cat)
	def := unit.FunctionDefinitions()[0]
	d := a.StrictPlus(def, PolicyDefault)
	require.True(t, d.Keep)
	require.Contains(t, d.IgnoredHelpers, "log")
	require.True(t, d.PerPathSingle)

	locs := map[string]bool{}
	for _, call := range d.MatchingCalls {
		locs[fmt.Sprintf("%d:%d", cparse.Line(call), cparse.Column(call))] = true
	}
	require.Equal(t, "yes - all", passthrough.New(unit).RetPass(def, locs))
}

func TestScenario4_AtomicPair(t *testing.T) {
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(
		`void w(int fd){ pthread_mutex_lock(&m); pthread_mutex_unlock(&m); }`))
	require.NoError(t, err)
	defer unit.Close()

	a := New(unit, testCatalog("pthread_mutex_lock", "pthread_mutex_unlock"))
	def := unit.FunctionDefinitions()[0]
	d := a.StrictPlus(def, PolicyDefault)
	require.True(t, d.Keep)
	require.True(t, d.PairUsed)
	require.Equal(t, 2, d.TotalHits)
	require.Contains(t, d.Reason, "atomic-pair")
}

func TestScenario5_LoopRejectsStrictAcceptsRelaxed(t *testing.T) {
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(
		`int w(int fd){ for(int i=0;i<10;i++) close(fd); return 0; }`))
	require.NoError(t, err)
	defer unit.Close()

	cat := testCatalog("close")
	a := New(unit, cat)
	def := unit.FunctionDefinitions()[0]

	strict := a.StrictPlus(def, PolicyDefault)
	require.False(t, strict.Keep)
	require.Equal(t, "reject: multi-call-per-path", strict.Reason)

	relaxed := a.Relaxed(def)
	require.True(t, relaxed.Keep)
	require.False(t, relaxed.PerPathSingle)
}

func TestScenario6_SyscallIndirection(t *testing.T) {
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(
		`int w(int a){ return syscall(SYS_openat, a, "x", 0); }`))
	require.NoError(t, err)
	defer unit.Close()

	a := New(unit, testCatalog("openat"))
	def := unit.FunctionDefinitions()[0]
	d := a.StrictPlus(def, PolicyDefault)
	require.True(t, d.Keep)
	require.Equal(t, "openat", d.ApiName)
}

func TestAtomicPairTable(t *testing.T) {
	require.True(t, IsAtomicPair([]string{"open", "close"}))
	require.True(t, IsAtomicPair([]string{"close", "open"}))
	require.True(t, IsAtomicPair([]string{"pthread_rwlock_rdlock", "pthread_rwlock_unlock"}))
	require.False(t, IsAtomicPair([]string{"open", "read"}))
}

func TestCollectHitsIgnoresPathSensitivityAndThinAliasGating(t *testing.T) {
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(
		`int w(int fd){ close(fd); close(fd); return close(fd); }`))
	require.NoError(t, err)
	defer unit.Close()

	a := New(unit, testCatalog("close"))
	def := unit.FunctionDefinitions()[0]

	d := a.StrictPlus(def, PolicyDefault)
	require.False(t, d.Keep, "strict-plus rejects multi-call-per-path")

	apis, hitLocs := a.CollectHits(def)
	require.Equal(t, []string{"close"}, apis)
	require.Len(t, hitLocs, 3)
}

func TestCollectHitsEmptyForNonTargetBody(t *testing.T) {
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(`int add(int a, int b){ return a+b; }`))
	require.NoError(t, err)
	defer unit.Close()

	a := New(unit, testCatalog("close"))
	def := unit.FunctionDefinitions()[0]
	apis, hitLocs := a.CollectHits(def)
	require.Empty(t, apis)
	require.Empty(t, hitLocs)
}
