package flags

// Gen1 covers clients 7.10 to 7.30.
var Gen1 = newTable("7.10-7.30",
	Entry{0x00, Ground},
	Entry{0x01, OnBottom},
	Entry{0x02, OnTop},
	Entry{0x03, Container},
	Entry{0x04, Stackable},
	Entry{0x05, MultiUse},
	Entry{0x06, ForceUse},
	Entry{0x07, Writable},
	Entry{0x08, WritableOnce},
	Entry{0x09, FluidContainer},
	Entry{0x0A, Fluid},
	Entry{0x0B, Unpassable},
	Entry{0x0C, Unmoveable},
	Entry{0x0D, BlockMissile},
	Entry{0x0E, BlockPathfind},
	Entry{0x0F, Pickupable},
	Entry{0x10, HasLight},
	Entry{0x11, FloorChange},
	Entry{0x12, FullGround},
	Entry{0x13, HasElevation},
	Entry{0x14, HasOffset},
	Entry{0x16, MiniMap},
	Entry{0x17, Rotatable},
	Entry{0x18, LyingObject},
	Entry{0x19, AnimateAlways},
	Entry{0x1A, LensHelp},
)

// Gen2 covers clients 7.40 to 7.50.
var Gen2 = newTable("7.40-7.50",
	Entry{0x00, Ground},
	Entry{0x01, OnBottom},
	Entry{0x02, OnTop},
	Entry{0x03, Container},
	Entry{0x04, Stackable},
	Entry{0x05, MultiUse},
	Entry{0x06, ForceUse},
	Entry{0x07, Writable},
	Entry{0x08, WritableOnce},
	Entry{0x09, FluidContainer},
	Entry{0x0A, Fluid},
	Entry{0x0B, Unpassable},
	Entry{0x0C, Unmoveable},
	Entry{0x0D, BlockMissile},
	Entry{0x0E, BlockPathfind},
	Entry{0x0F, Pickupable},
	Entry{0x10, HasLight},
	Entry{0x11, FloorChange},
	Entry{0x12, FullGround},
	Entry{0x13, HasElevation},
	Entry{0x14, HasOffset},
	Entry{0x16, MiniMap},
	Entry{0x17, Rotatable},
	Entry{0x18, LyingObject},
	Entry{0x19, Hangable},
	Entry{0x1A, Vertical},
	Entry{0x1B, Horizontal},
	Entry{0x1C, AnimateAlways},
	Entry{0x1D, LensHelp},
)

// Gen3 covers clients 7.55 to 7.72.
var Gen3 = newTable("7.55-7.72",
	Entry{0x00, Ground},
	Entry{0x01, GroundBorder},
	Entry{0x02, OnBottom},
	Entry{0x03, OnTop},
	Entry{0x04, Container},
	Entry{0x05, Stackable},
	Entry{0x06, MultiUse},
	Entry{0x07, ForceUse},
	Entry{0x08, Writable},
	Entry{0x09, WritableOnce},
	Entry{0x0A, FluidContainer},
	Entry{0x0B, Fluid},
	Entry{0x0C, Unpassable},
	Entry{0x0D, Unmoveable},
	Entry{0x0E, BlockMissile},
	Entry{0x0F, BlockPathfind},
	Entry{0x10, Pickupable},
	Entry{0x11, Hangable},
	Entry{0x12, Vertical},
	Entry{0x13, Horizontal},
	Entry{0x14, Rotatable},
	Entry{0x15, HasLight},
	Entry{0x16, FloorChange},
	Entry{0x17, HasOffset},
	Entry{0x18, HasElevation},
	Entry{0x19, LyingObject},
	Entry{0x1A, AnimateAlways},
	Entry{0x1B, MiniMap},
	Entry{0x1C, LensHelp},
	Entry{0x1D, FullGround},
)

// Gen4 covers clients 7.80 to 8.54.
var Gen4 = newTable("7.80-8.54",
	Entry{0x00, Ground},
	Entry{0x01, GroundBorder},
	Entry{0x02, OnBottom},
	Entry{0x03, OnTop},
	Entry{0x04, Container},
	Entry{0x05, Stackable},
	Entry{0x06, ForceUse},
	Entry{0x07, MultiUse},
	Entry{0x08, HasCharges},
	Entry{0x09, Writable},
	Entry{0x0A, WritableOnce},
	Entry{0x0B, FluidContainer},
	Entry{0x0C, Fluid},
	Entry{0x0D, Unpassable},
	Entry{0x0E, Unmoveable},
	Entry{0x0F, BlockMissile},
	Entry{0x10, BlockPathfind},
	Entry{0x11, Pickupable},
	Entry{0x12, Hangable},
	Entry{0x13, Vertical},
	Entry{0x14, Horizontal},
	Entry{0x15, Rotatable},
	Entry{0x16, HasLight},
	Entry{0x17, DontHide},
	Entry{0x18, FloorChange},
	Entry{0x19, HasOffset},
	Entry{0x1A, HasElevation},
	Entry{0x1B, LyingObject},
	Entry{0x1C, AnimateAlways},
	Entry{0x1D, MiniMap},
	Entry{0x1E, LensHelp},
	Entry{0x1F, FullGround},
	Entry{0x20, IgnoreLook},
)

// Gen5 covers clients 8.60 to 9.86.
var Gen5 = newTable("8.60-9.86",
	Entry{0x00, Ground},
	Entry{0x01, GroundBorder},
	Entry{0x02, OnBottom},
	Entry{0x03, OnTop},
	Entry{0x04, Container},
	Entry{0x05, Stackable},
	Entry{0x06, ForceUse},
	Entry{0x07, MultiUse},
	Entry{0x08, Writable},
	Entry{0x09, WritableOnce},
	Entry{0x0A, FluidContainer},
	Entry{0x0B, Fluid},
	Entry{0x0C, Unpassable},
	Entry{0x0D, Unmoveable},
	Entry{0x0E, BlockMissile},
	Entry{0x0F, BlockPathfind},
	Entry{0x10, Pickupable},
	Entry{0x11, Hangable},
	Entry{0x12, Vertical},
	Entry{0x13, Horizontal},
	Entry{0x14, Rotatable},
	Entry{0x15, HasLight},
	Entry{0x16, DontHide},
	Entry{0x17, Translucent},
	Entry{0x18, HasOffset},
	Entry{0x19, HasElevation},
	Entry{0x1A, LyingObject},
	Entry{0x1B, AnimateAlways},
	Entry{0x1C, MiniMap},
	Entry{0x1D, LensHelp},
	Entry{0x1E, FullGround},
	Entry{0x1F, IgnoreLook},
	Entry{0x20, Cloth},
	Entry{0x21, MarketItem},
)

var gen6Entries = []Entry{
	{0x00, Ground},
	{0x01, GroundBorder},
	{0x02, OnBottom},
	{0x03, OnTop},
	{0x04, Container},
	{0x05, Stackable},
	{0x06, ForceUse},
	{0x07, MultiUse},
	{0x08, Writable},
	{0x09, WritableOnce},
	{0x0A, FluidContainer},
	{0x0B, Fluid},
	{0x0C, Unpassable},
	{0x0D, Unmoveable},
	{0x0E, BlockMissile},
	{0x0F, BlockPathfind},
	{0x10, NoMoveAnimation},
	{0x11, Pickupable},
	{0x12, Hangable},
	{0x13, Vertical},
	{0x14, Horizontal},
	{0x15, Rotatable},
	{0x16, HasLight},
	{0x17, DontHide},
	{0x18, Translucent},
	{0x19, HasOffset},
	{0x1A, HasElevation},
	{0x1B, LyingObject},
	{0x1C, AnimateAlways},
	{0x1D, MiniMap},
	{0x1E, LensHelp},
	{0x1F, FullGround},
	{0x20, IgnoreLook},
	{0x21, Cloth},
	{0x22, MarketItem},
	{0x23, DefaultAction},
	{0x24, Wrappable},
	{0x25, Unwrappable},
	{0x26, TopEffect},
	{0xFE, Usable},
}

// Gen6 covers clients 10.10 and newer.
var Gen6 = newTable("10.10+", gen6Entries...)

// Exchange is the fixed table used inside exchange containers. It extends
// Gen6 with the properties only older generations know, so a thing from any
// client survives the trip.
var Exchange = newTable("exchange", append(append([]Entry{}, gen6Entries...),
	Entry{0x40, HasCharges},
	Entry{0x41, FloorChange},
)...)
