package simulated

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"
)

// journalRecord is the on-disk envelope for one internalEvent, checksummed
// the same way the storage package's per-pair log checksums its records.
type journalRecord struct {
	SequenceNum uint64
	Type        internalEventType
	Data        interface{}
	Checksum    uint32
}

// journal is the adapter's own crash-recovery log: replaying it in order
// after a restart reconstructs the order books and clearing house state
// without needing a real exchange's order history endpoint.
type journal struct {
	mu          sync.Mutex
	file        *os.File
	writer      *bufio.Writer
	encoder     *gob.Encoder
	path        string
	sequenceNum uint64
}

func newJournal(path string) (*journal, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	writer := bufio.NewWriter(file)
	j := &journal{
		file:    file,
		writer:  writer,
		encoder: gob.NewEncoder(writer),
		path:    path,
	}
	if err := j.recoverSequence(); err != nil {
		file.Close()
		return nil, fmt.Errorf("recover journal %s: %w", path, err)
	}
	return j, nil
}

func (j *journal) append(typ internalEventType, data interface{}) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sequenceNum++
	rec := journalRecord{
		SequenceNum: j.sequenceNum,
		Type:        typ,
		Data:        data,
		Checksum:    crc32.ChecksumIEEE([]byte(fmt.Sprintf("%v", data))),
	}
	if err := j.encoder.Encode(rec); err != nil {
		return fmt.Errorf("encode journal record: %w", err)
	}
	return j.writer.Flush()
}

// replay reads every record in sequence order and invokes handler, used to
// rebuild the matching engine and clearing house on startup.
func (j *journal) replay(handler func(typ internalEventType, data interface{}) error) error {
	file, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open for replay: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	for {
		var rec journalRecord
		if err := decoder.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("decode journal record: %w", err)
		}
		if want := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%v", rec.Data))); rec.Checksum != want {
			return fmt.Errorf("checksum mismatch at sequence %d", rec.SequenceNum)
		}
		if err := handler(rec.Type, rec.Data); err != nil {
			return fmt.Errorf("handler error at sequence %d: %w", rec.SequenceNum, err)
		}
	}
	return nil
}

func (j *journal) recoverSequence() error {
	file, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	for {
		var rec journalRecord
		if err := decoder.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		j.sequenceNum = rec.SequenceNum
	}
	return nil
}

func (j *journal) close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Close()
}

func init() {
	gob.Register(newOrderEvent{})
	gob.Register(cancelOrderEvent{})
	gob.Register(orderAcceptedEvent{})
	gob.Register(orderRejectedEvent{})
	gob.Register(fillEvent{})
	gob.Register(orderCancelledEvent{})
}
