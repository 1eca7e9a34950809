package sim

// Register layout of the simulated user-mode CPU.
const (
	NumGPRegs    = 32
	StackReg     = 29
	RetAddrReg   = 31
	HiReg        = 32
	LoReg        = 33
	PCReg        = 34
	NextPCReg    = 35
	PrevPCReg    = 36
	NumTotalRegs = 40
)

// TranslationEntry maps one virtual page to a physical frame.
type TranslationEntry struct {
	VirtualPage  int
	PhysicalPage int
	Valid        bool
}

// Machine is the user-mode CPU state shared by whichever thread is running.
type Machine struct {
	Registers [NumTotalRegs]int
	PageTable []TranslationEntry
}

// ReadRegister returns register n.
func (m *Machine) ReadRegister(n int) int {
	return m.Registers[n]
}

// WriteRegister sets register n.
func (m *Machine) WriteRegister(n int, value int) {
	m.Registers[n] = value
}

// advancePC steps past one instruction.
func (m *Machine) advancePC() {
	m.Registers[PrevPCReg] = m.Registers[PCReg]
	m.Registers[PCReg] = m.Registers[NextPCReg]
	m.Registers[NextPCReg] += 4
}

// AddressSpace is the per-thread user memory context. The dispatcher calls
// SaveState once when switching away from the owner and RestoreState once when
// the owner resumes. Implementations must not call back into the scheduler.
type AddressSpace interface {
	SaveState()
	RestoreState()
}

// PagedSpace is a linear page-table address space.
type PagedSpace struct {
	machine   *Machine
	pageTable []TranslationEntry

	Saves    int
	Restores int
}

// NewPagedSpace builds an address space of numPages pages backed by frames
// starting at firstFrame.
func NewPagedSpace(m *Machine, numPages, firstFrame int) *PagedSpace {
	pt := make([]TranslationEntry, numPages)
	for i := range pt {
		pt[i] = TranslationEntry{VirtualPage: i, PhysicalPage: firstFrame + i, Valid: true}
	}
	return &PagedSpace{machine: m, pageTable: pt}
}

// SaveState has nothing to copy out; the page table is never modified by the machine.
func (p *PagedSpace) SaveState() {
	p.Saves++
}

// RestoreState installs this space's page table on the machine.
func (p *PagedSpace) RestoreState() {
	p.machine.PageTable = p.pageTable
	p.Restores++
}

// PageTable returns the space's translation table.
func (p *PagedSpace) PageTable() []TranslationEntry {
	return p.pageTable
}
