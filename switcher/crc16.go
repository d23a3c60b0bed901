package switcher

// crc16ARC computes CRC-16/ARC (poly 0x8005 reflected, zero init and
// xorout). WM_COMMAND only delivers the low word of a menu item ID, so menu
// IDs must be deterministic 16-bit values; a CRC of the endpoint ID keeps
// them stable across restarts. Collisions are possible but unlikely for a
// handful of devices.
func crc16ARC(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// MenuID converts an endpoint ID to its popup-menu item ID.
func MenuID(deviceID string) uint32 {
	return uint32(crc16ARC([]byte(deviceID)))
}
