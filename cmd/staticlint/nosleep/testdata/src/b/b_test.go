package b

import "time"

func helper() {
	time.Sleep(time.Millisecond)
}
