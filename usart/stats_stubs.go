//go:build !avrodebug

package usart

type stats struct{}

type Stats struct{}

func (u *UART) dbgRxDrop()      {}
func (u *UART) dbgNotify(bool)  {}
func (u *UART) dbgReadWait()    {}
func (u *UART) DebugStats() Stats { return Stats{} }
func (u *UART) DebugReset()       {}
