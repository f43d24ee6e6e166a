package types

// TestingTB is the subset of testing.TB the fixtures need. Taking an interface lets the
// fixtures run under other test runners.
type TestingTB interface {
	Cleanup(func())
	Fatal(args ...interface{})
	Helper()
	Name() string
	Skip(args ...interface{})
	Fail()
	FailNow()
	Log(args ...interface{})
}
