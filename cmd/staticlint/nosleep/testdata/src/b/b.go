package b

import sleep "time"

// Sleep своя функция с тем же именем не считается.
func Sleep(d sleep.Duration) {}

func aliased() {
	sleep.Sleep(1) // want "вызов time.Sleep запрещён"
	Sleep(1)
}
