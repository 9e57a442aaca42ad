package pool

import (
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// TransferQueue is the shared pool for network-bound file transfers. All
// datasets in one invocation schedule onto the same queue, including --all
// fan-outs, so resource usage stays predictable.
var TransferQueue *Queue

func Init(workers int) {
	var err error
	if TransferQueue, err = NewQueue(workers, "transfers"); err != nil {
		sentry.CaptureException(err)
		logrus.Error("Error setting up transfer queue")
		logrus.Fatal(err)
	}
}

func AdjustSize(workers int) {
	TransferQueue.Tune(workers)
}

func Drain() {
	TransferQueue.Release()
}
