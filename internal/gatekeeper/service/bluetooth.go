package service

import (
	"context"
	"slices"
	"strings"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

func (c *Collections) BluetoothDevices() []types.BluetoothDevice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.bt)
}

func (c *Collections) HasBluetooth(mac string) bool {
	mac, ok := types.CanonicalMAC(mac)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bluetoothIndex(mac) >= 0
}

// AddBluetooth allows a BLE peer. Both MAC and name are required; the MAC is
// stored uppercase and colon-delimited.
func (c *Collections) AddBluetooth(ctx context.Context, mac, name string) (types.BluetoothDevice, error) {
	mac, ok := types.CanonicalMAC(mac)
	if !ok {
		return types.BluetoothDevice{}, ErrInvalidMAC
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return types.BluetoothDevice{}, ErrNameRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bluetoothIndex(mac) >= 0 {
		return types.BluetoothDevice{}, ErrBluetoothExists
	}
	dev := types.BluetoothDevice{MAC: mac, Name: name}
	next := append(slices.Clone(c.bt), dev)
	if err := save(ctx, c, "bluetooth", c.stores.Bluetooth, next); err != nil {
		return types.BluetoothDevice{}, err
	}
	c.bt = next
	return dev, nil
}

// UpdateBluetooth renames a device. An empty name leaves it unchanged.
func (c *Collections) UpdateBluetooth(ctx context.Context, mac, name string) (types.BluetoothDevice, error) {
	mac, ok := types.CanonicalMAC(mac)
	if !ok {
		return types.BluetoothDevice{}, ErrBluetoothNotFound
	}
	name = strings.TrimSpace(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.bluetoothIndex(mac)
	if i < 0 {
		return types.BluetoothDevice{}, ErrBluetoothNotFound
	}
	if name == "" || name == c.bt[i].Name {
		return c.bt[i], nil
	}
	next := slices.Clone(c.bt)
	next[i].Name = name
	if err := save(ctx, c, "bluetooth", c.stores.Bluetooth, next); err != nil {
		return types.BluetoothDevice{}, err
	}
	c.bt = next
	return next[i], nil
}

func (c *Collections) DeleteBluetooth(ctx context.Context, mac string) error {
	mac, ok := types.CanonicalMAC(mac)
	if !ok {
		return ErrBluetoothNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.bluetoothIndex(mac)
	if i < 0 {
		return ErrBluetoothNotFound
	}
	next := slices.Delete(slices.Clone(c.bt), i, i+1)
	if err := save(ctx, c, "bluetooth", c.stores.Bluetooth, next); err != nil {
		return err
	}
	c.bt = next
	return nil
}

func (c *Collections) bluetoothIndex(mac string) int {
	return slices.IndexFunc(c.bt, func(d types.BluetoothDevice) bool { return d.MAC == mac })
}
