// Package snmp implements a read-only port inspector over SNMP. It offers
// the interface table of IF-MIB as []types.Port, a cheap alternative to a
// CLI or NETCONF session when only port state is needed.
package snmp

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charlesren/ylog"
	"github.com/gosnmp/gosnmp"

	"github.com/nocware/netexec/types"
)

const logModule = "snmp"

// IF-MIB columns backing the port view.
const (
	oidIfDescr       = "1.3.6.1.2.1.2.2.1.2"
	oidIfAdminStatus = "1.3.6.1.2.1.2.2.1.7"
	oidIfOperStatus  = "1.3.6.1.2.1.2.2.1.8"
	oidIfAlias       = "1.3.6.1.2.1.31.1.1.1.18"
)

// ifStatusUp is the IF-MIB encoding of up(1) for both admin and oper status.
const ifStatusUp = 1

// DefaultTimeout bounds a single SNMP request.
const DefaultTimeout = 5 * time.Second

// Config holds the connection parameters for one SNMP agent.
type Config struct {
	Device  string
	Port    uint16
	Timeout time.Duration
	Retries int

	// Community selects SNMPv2c. Leave empty and fill the v3 fields to
	// use SNMPv3 with authPriv.
	Community string

	Username       string
	AuthPassphrase string
	PrivPassphrase string
}

// Inspector reads port state from one device agent.
type Inspector struct {
	cfg  Config
	conn *gosnmp.GoSNMP
}

// NewInspector creates an inspector. The agent is not contacted until
// Connect is called.
func NewInspector(cfg Config) *Inspector {
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries == 0 {
		cfg.Retries = 2
	}
	return &Inspector{cfg: cfg}
}

// Connect opens the UDP socket to the agent.
func (i *Inspector) Connect(ctx context.Context) error {
	conn := &gosnmp.GoSNMP{
		Target:  i.cfg.Device,
		Port:    i.cfg.Port,
		Timeout: i.cfg.Timeout,
		Retries: i.cfg.Retries,
		Context: ctx,
	}
	if i.cfg.Community != "" {
		conn.Version = gosnmp.Version2c
		conn.Community = i.cfg.Community
	} else {
		conn.Version = gosnmp.Version3
		conn.SecurityModel = gosnmp.UserSecurityModel
		conn.MsgFlags = gosnmp.AuthPriv
		conn.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 i.cfg.Username,
			AuthenticationProtocol:   gosnmp.SHA,
			AuthenticationPassphrase: i.cfg.AuthPassphrase,
			PrivacyProtocol:          gosnmp.AES,
			PrivacyPassphrase:        i.cfg.PrivPassphrase,
		}
	}
	if err := conn.Connect(); err != nil {
		ylog.Errorf(logModule, "connection to %s error: %v", i.cfg.Device, err)
		return &types.ConnectionError{Device: i.cfg.Device, Cause: types.CauseTransport, Err: err}
	}
	i.conn = conn
	return nil
}

// Close releases the socket. Safe to call repeatedly.
func (i *Inspector) Close() {
	if i.conn == nil {
		return
	}
	if i.conn.Conn != nil {
		_ = i.conn.Conn.Close()
	}
	i.conn = nil
}

// Ports walks the IF-MIB interface table and returns one record per
// interface, ordered by interface index. Description comes from ifAlias;
// the interface name from ifDescr.
func (i *Inspector) Ports(ctx context.Context) ([]types.Port, error) {
	if i.conn == nil {
		return nil, &types.ConnectionError{Device: i.cfg.Device, Cause: types.CauseTransport, Err: types.ErrNoConnection}
	}
	names, err := i.walkStrings(oidIfDescr)
	if err != nil {
		return nil, err
	}
	admin, err := i.walkInts(oidIfAdminStatus)
	if err != nil {
		return nil, err
	}
	oper, err := i.walkInts(oidIfOperStatus)
	if err != nil {
		return nil, err
	}
	alias, err := i.walkStrings(oidIfAlias)
	if err != nil {
		return nil, err
	}
	return buildPorts(names, alias, admin, oper), nil
}

func (i *Inspector) walkStrings(oid string) (map[int]string, error) {
	out := make(map[int]string)
	err := i.conn.BulkWalk(oid, func(pdu gosnmp.SnmpPDU) error {
		idx, err := pduIndex(pdu.Name)
		if err != nil {
			return err
		}
		if b, ok := pdu.Value.([]byte); ok {
			out[idx] = string(b)
		}
		return nil
	})
	if err != nil {
		ylog.Errorf(logModule, "walk %s on %s error: %v", oid, i.cfg.Device, err)
		return nil, &types.CommandError{Device: i.cfg.Device, Command: oid, Cause: types.CauseTransport, Err: err}
	}
	return out, nil
}

func (i *Inspector) walkInts(oid string) (map[int]int, error) {
	out := make(map[int]int)
	err := i.conn.BulkWalk(oid, func(pdu gosnmp.SnmpPDU) error {
		idx, err := pduIndex(pdu.Name)
		if err != nil {
			return err
		}
		out[idx] = int(gosnmp.ToBigInt(pdu.Value).Int64())
		return nil
	})
	if err != nil {
		ylog.Errorf(logModule, "walk %s on %s error: %v", oid, i.cfg.Device, err)
		return nil, &types.CommandError{Device: i.cfg.Device, Command: oid, Cause: types.CauseTransport, Err: err}
	}
	return out, nil
}

// pduIndex extracts the interface index, the last OID segment.
func pduIndex(name string) (int, error) {
	seg := name[strings.LastIndex(name, ".")+1:]
	idx, err := strconv.Atoi(seg)
	if err != nil {
		return 0, fmt.Errorf("oid %s: bad interface index: %w", name, err)
	}
	return idx, nil
}

// buildPorts assembles the column walks into port records, keyed and
// ordered by interface index. Interfaces missing from the name column are
// skipped; missing status columns default to down.
func buildPorts(names, alias map[int]string, admin, oper map[int]int) []types.Port {
	idxs := make([]int, 0, len(names))
	for idx := range names {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)

	ports := make([]types.Port, 0, len(idxs))
	for _, idx := range idxs {
		ports = append(ports, types.Port{
			Name:        names[idx],
			Description: alias[idx],
			AdminUp:     admin[idx] == ifStatusUp,
			OperUp:      oper[idx] == ifStatusUp,
		})
	}
	return ports
}
