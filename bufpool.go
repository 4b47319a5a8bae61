package byml

import (
	"bytes"
	"sync"
)

// bytesBufPool reuses buffers for whole-document reads.
// Documents are commonly tens to hundreds of kilobytes, so buffers start at 64KB.
var bytesBufPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 64*1024))
	},
}
